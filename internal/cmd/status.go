package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/k0kubun/pp"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"stagehand/internal/cmd/flags"
	"stagehand/internal/config"
	"stagehand/internal/postlog"
	"stagehand/internal/state"
)

var statusCmd = &cli.Command{
	Name:  "status",
	Usage: "Show the current forum setup and posting progress",
	Flags: []cli.Flag{
		flags.StateFile,
		flags.PostLog,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		return run(ctx, c, func(_ *config.Config) []pal.ServiceDef {
			return []pal.ServiceDef{
				pal.Provide(&state.Store{}),
				pal.Provide(&statusPrinter{}),
			}
		})
	},
}

type statusPrinter struct {
	Logger *slog.Logger
	Config *config.Config
	Store  *state.Store
}

// communityStatus is the per-community slice of the status dump.
type communityStatus struct {
	Name       string
	Slug       string
	InviteCode string
	Bots       []string
}

func (p *statusPrinter) Run(_ context.Context) error {
	communities := p.Store.Communities()
	if len(communities) == 0 {
		fmt.Println("No forum setup found. Run setup first.")
		return nil
	}

	botsBySlug := lo.GroupBy(lo.Values(p.Store.Bots()), func(b state.Bot) string {
		return b.CommunitySlug
	})

	status := lo.MapValues(communities, func(c state.Community, _ string) communityStatus {
		return communityStatus{
			Name:       c.Name,
			Slug:       c.Slug,
			InviteCode: c.InviteCode,
			Bots: lo.Map(botsBySlug[c.Slug], func(b state.Bot, _ int) string {
				return b.DisplayName
			}),
		}
	})

	pp.Println(status)

	posted, err := postlog.CountFile(p.Config.PostLogFile)
	if err != nil {
		return err
	}
	fmt.Printf("Posted: %d entries\n", posted)

	return nil
}
