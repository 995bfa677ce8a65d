package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/mr-karan/abode/internal/app"
)

// serveCommand runs the search API and/or the gateway client.
func (a *App) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the archiver and search API",
		Description: `Run the long-lived service. By default both the HTTP search API
   and the gateway client run; disable either with --api=false or
   --client=false.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "api",
				Usage: "run the HTTP search API",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "client",
				Usage: "run the gateway client",
				Value: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			instance, err := app.New(app.Options{
				ConfigPath:   cmd.String("config"),
				Version:      a.Version,
				EnableAPI:    cmd.Bool("api"),
				EnableClient: cmd.Bool("client"),
			})
			if err != nil {
				return err
			}
			if err := instance.Initialize(ctx); err != nil {
				return err
			}
			return instance.Run(ctx)
		},
	}
}
