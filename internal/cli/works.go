package cli

import (
	"github.com/urfave/cli/v2"

	"github.com/DarienLibrary/covercache-public/internal/entrypoint"
)

var workFlag = &cli.IntFlag{
	Name:     "work",
	Aliases:  []string{"w"},
	Usage:    "Work `ID`",
	Required: true,
}

func pollCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "poll",
		Usage: "Try every provider for a work that has no cover yet",
		Flags: []cli.Flag{workFlag},
		Action: func(c *cli.Context) error {
			id := c.Int("work")
			return r.withApp(func(app *entrypoint.App) error {
				if err := app.Works.PollSources(c.Context, id); err != nil {
					return err
				}
				covers, err := app.Works.GetCovers(id)
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, covers)
			})
		},
	}
}

func overrideCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "override",
		Usage: "Attach a staff-supplied cover image to a work",
		Flags: []cli.Flag{
			workFlag,
			&cli.StringFlag{
				Name:     "url",
				Usage:    "Image `URL`",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			return r.withApp(func(app *entrypoint.App) error {
				covers, err := app.Works.Override(c.Context, c.Int("work"), c.String("url"))
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, covers)
			})
		},
	}
}

func statsCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Print cover coverage statistics",
		Action: func(c *cli.Context) error {
			return r.withApp(func(app *entrypoint.App) error {
				stats, err := app.Works.Stats()
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, stats)
			})
		},
	}
}
