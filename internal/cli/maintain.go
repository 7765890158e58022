package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/DarienLibrary/covercache-public/internal/entrypoint"
)

func maintainCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "maintain",
		Usage: "Run one catalog maintenance pass and print its report",
		Action: func(c *cli.Context) error {
			return r.withApp(func(app *entrypoint.App) error {
				if app.Maintenance == nil {
					return entrypoint.ErrNoCatalog
				}
				report, err := app.Maintenance.Run(c.Context)
				if err != nil {
					return fmt.Errorf("maintenance: %w", err)
				}
				log.Info().
					Int("renamed", report.Renamed).
					Int("pruned", report.Pruned).
					Int("covers_acquired", report.CoversAcquired).
					Dur("duration", report.Duration).
					Msg("Maintenance finished")
				return printJSON(c.App.Writer, report)
			})
		},
	}
}
