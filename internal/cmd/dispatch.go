package cmd

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"stagehand/internal/cmd/flags"
	"stagehand/internal/config"
	"stagehand/internal/core"
	"stagehand/internal/dispatch"
	"stagehand/internal/forum"
	"stagehand/internal/metrics"
	"stagehand/internal/persistence"
	"stagehand/internal/postlog"
	"stagehand/internal/schedule"
	"stagehand/internal/state"
)

var runOnceCmd = &cli.Command{
	Name:  "run-once",
	Usage: "Publish every record scheduled for a single date, then exit",
	Flags: []cli.Flag{
		flags.APIURL,
		flags.StateFile,
		flags.Schedule,
		flags.PostLog,
		flags.Date,
		flags.SleepBetween,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		return run(ctx, c, func(cfg *config.Config) []pal.ServiceDef {
			return append(dispatchServices(cfg),
				pal.Provide(&dispatch.Runner{}),
			)
		})
	},
}

var watchCmd = &cli.Command{
	Name:  "watch",
	Usage: "Poll the schedule every minute, publish whatever is due",
	Flags: []cli.Flag{
		flags.APIURL,
		flags.StateFile,
		flags.Schedule,
		flags.PostLog,
		flags.MetricsAddr,
		flags.Seed,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		return run(ctx, c, func(cfg *config.Config) []pal.ServiceDef {
			return append(dispatchServices(cfg),
				pal.Provide(&dispatch.Watcher{}),
				pal.Provide(&metrics.Server{}),
			)
		})
	},
}

// dispatchServices wires the collaborators both dispatch modes share. The
// post log lands in Postgres when DATABASE_URL is set, in a JSONL file
// otherwise.
func dispatchServices(cfg *config.Config) []pal.ServiceDef {
	services := []pal.ServiceDef{
		pal.Provide[core.Publisher](&forum.Client{}),
		pal.Provide[core.Directory](&state.Store{}),
		pal.Provide[core.RecordSource](&schedule.FileSource{Path: cfg.ScheduleFile}),
	}

	if os.Getenv("DATABASE_URL") != "" {
		services = append(services,
			pal.Provide(&persistence.DB{}),
			pal.Provide[core.PostLog](&postlog.Repository{}),
		)
	} else {
		services = append(services,
			pal.Provide[core.PostLog](&postlog.FileLog{}),
		)
	}

	return services
}
