package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/urfave/cli/v3"
)

// set through -ldflags by release builds
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

var versionCMD = &cli.Command{
	Name:    "version",
	Aliases: []string{"v"},
	Usage:   "Print the version",
	Action: func(_ context.Context, _ *cli.Command) error {
		info, _ := debug.ReadBuildInfo()

		if _, err := io.WriteString(os.Stdout, versionInfo(info)); err != nil {
			return err
		}

		return nil
	},
}

// versionInfo falls back to the vcs stamp of `go build` when no release metadata was linked in.
func versionInfo(info *debug.BuildInfo) string {
	commit, date, modified := Commit, Date, false

	if info != nil {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if commit == "" {
					commit = s.Value
				}
			case "vcs.time":
				if date == "" {
					date = s.Value
				}
			case "vcs.modified":
				modified = s.Value == "true"
			}
		}
	}

	if commit == "" {
		commit = "unknown"
	} else if modified && Commit == "" {
		commit += "-dirty"
	}

	if date == "" {
		date = "unknown"
	}

	return fmt.Sprintf("eventbot %s\n"+
		"commit: %s\n"+
		"built at: %s\n"+
		"platform: %s/%s\n"+
		"go version: %s\n",
		Version, commit, date, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	)
}
