package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/mr-karan/abode/internal/cli/client"
	"github.com/mr-karan/abode/internal/cli/render"
	"github.com/mr-karan/abode/internal/core"
)

// queryCommand searches the archive from the terminal.
func (a *App) queryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "search the archive",
		ArgsUsage: "<model> [query]",
		Description: `Search one archive model with the abode query language.

Examples:
   abode query message 'content:yeet'
   abode query message 'guild.owner.name:Danny' --limit 10
   abode query guild 'name:(discord AND NOT api)' --output json
   abode query message 'content:release -> id guild.name content'
   abode query message 'content:yeet' --show-sql`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "abode server URL",
				Value:   "http://localhost:9999",
				Sources: cli.EnvVars("ABODE_SERVER_URL"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "API token for authentication",
				Sources: cli.EnvVars("ABODE_API_TOKEN"),
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "maximum number of results",
				Value:   100,
			},
			&cli.IntFlag{
				Name:  "page",
				Usage: "result page (1-based)",
				Value: 1,
			},
			&cli.StringFlag{
				Name:  "order-by",
				Usage: "field to order by (dotted paths allowed)",
			},
			&cli.StringFlag{
				Name:  "order-dir",
				Usage: "ASC or DESC",
			},
			&cli.BoolFlag{
				Name:  "foreign",
				Usage: "include joined reference data",
				Value: true,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output format: table, json, jsonl",
				Value:   "table",
			},
			&cli.BoolFlag{
				Name:  "show-sql",
				Usage: "compile locally and print the SQL without executing",
			},
		},
		Action: a.runQuery,
	}
}

func (a *App) runQuery(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("a model is required (one of: guild, message, user, channel, emoji)")
	}

	foreign := cmd.Bool("foreign")
	req := core.SearchRequest{
		Model:       args[0],
		Query:       strings.Join(args[1:], " "),
		Limit:       int(cmd.Int("limit")),
		Page:        int(cmd.Int("page")),
		OrderBy:     cmd.String("order-by"),
		OrderDir:    cmd.String("order-dir"),
		ForeignData: &foreign,
	}

	// --show-sql needs no server; the compiler runs in-process.
	if cmd.Bool("show-sql") {
		compiled, _, err := core.Compile(req)
		if err != nil {
			return err
		}
		fmt.Println(compiled.SQL)
		if len(compiled.Args) > 0 {
			fmt.Println(mutedStyle.Render(fmt.Sprintf("args: %v", compiled.Args)))
		}
		return nil
	}

	api := client.New(cmd.String("server"), cmd.String("token"))
	resp, err := api.Search(ctx, req)
	if err != nil {
		return err
	}

	if err := render.Results(os.Stdout, cmd.String("output"), resp.Fields, resp.Results); err != nil {
		return err
	}
	if cmd.Bool("debug") {
		fmt.Println(mutedStyle.Render(fmt.Sprintf("sql: %s (%dms)", resp.Debug.SQL, resp.Debug.DurationMs)))
	}
	return nil
}
