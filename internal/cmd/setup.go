package cmd

import (
	"context"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"stagehand/internal/cmd/flags"
	"stagehand/internal/config"
	"stagehand/internal/forum"
	"stagehand/internal/setup"
	"stagehand/internal/state"
)

var setupCmd = &cli.Command{
	Name:  "setup",
	Usage: "Create communities and bot accounts through the admin API",
	Flags: []cli.Flag{
		flags.APIURL,
		flags.AdminEmail,
		flags.StateFile,
		flags.Communities,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		return run(ctx, c, func(_ *config.Config) []pal.ServiceDef {
			return []pal.ServiceDef{
				pal.Provide(&forum.Client{}),
				pal.Provide(&state.Store{}),
				pal.Provide(&setup.Provisioner{}),
			}
		})
	},
}
