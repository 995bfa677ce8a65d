package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/mr-karan/abode/internal/config"
	"github.com/mr-karan/abode/internal/core"
	"github.com/mr-karan/abode/internal/discord"
	"github.com/mr-karan/abode/internal/postgres"
	"github.com/mr-karan/abode/pkg/logger"
)

// backfillCommand replays history into the archive directly, without
// running the long-lived service. History fetches use the REST API,
// so no gateway connection is opened.
func (a *App) backfillCommand() *cli.Command {
	return &cli.Command{
		Name:      "backfill",
		Usage:     "replay channel or guild history into the archive",
		ArgsUsage: "<channel|guild|dms> [id]",
		Description: `Backfill message history.

Examples:
   abode backfill channel 580596825128697874
   abode backfill guild 81384788765712384
   abode backfill dms`,
		Action: a.runBackfill,
	}
}

func (a *App) runBackfill(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("a target is required: channel, guild, or dms")
	}
	target := args[0]
	if target != "dms" && len(args) < 2 {
		return fmt.Errorf("an id is required for %s backfills", target)
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	if cfg.Discord.Token == "" {
		return fmt.Errorf("discord token is required in configuration")
	}
	log := logger.New(cmd.Bool("debug") || cfg.Logging.Level == "debug")

	store, err := postgres.New(ctx, postgres.Options{Config: cfg.Postgres, Logger: log})
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := discord.New(discord.Options{
		Token:    cfg.Discord.Token,
		Logger:   log,
		Archiver: core.NewArchiver(store, log),
	})
	if err != nil {
		return err
	}

	switch target {
	case "channel":
		return client.BackfillChannel(ctx, args[1])
	case "guild":
		return client.BackfillGuild(ctx, args[1])
	case "dms":
		return client.BackfillDMs(ctx)
	default:
		return fmt.Errorf("unknown backfill target %q", target)
	}
}
