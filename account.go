package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

var accountCMD = &cli.Command{
	Name:        "account",
	Description: "Validates the bot and broadcaster tokens, missing ones are captured through the browser",
	Usage:       "Check or set up the accounts used by eventbot",
	Action: func(ctx context.Context, command *cli.Command) error {
		logger, err := setupLogger(command.String("log-level"))
		if err != nil {
			return err
		}

		_, creds, err := loadCredentials(ctx, logger, command, newHTTPClient(logger))
		if err != nil {
			return err
		}

		res := fmt.Sprintf("bot: %s (%s)\nbroadcaster: %s (%s)\n",
			creds.bot.Login, creds.bot.UserID,
			creds.broadcaster.Login, creds.broadcaster.UserID,
		)

		if _, err := io.WriteString(os.Stdout, res); err != nil {
			return err
		}

		return nil
	},
}
