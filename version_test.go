package main

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionInfo(t *testing.T) {
	t.Run("without build info", func(t *testing.T) {
		out := versionInfo(nil)

		require.Contains(t, out, "eventbot "+Version+"\n")
		require.Contains(t, out, "commit: unknown\n")
		require.Contains(t, out, "built at: unknown\n")
	})

	t.Run("uses vcs stamp", func(t *testing.T) {
		out := versionInfo(&debug.BuildInfo{Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		}})

		require.Contains(t, out, "commit: abc123-dirty\n")
		require.Contains(t, out, "built at: 2026-10-01T12:00:00Z\n")
	})
}
