package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"stagehand/internal/cmd/flags"
	"stagehand/internal/config"
	"stagehand/internal/outline"
	"stagehand/internal/schedule"
)

var convertCmd = &cli.Command{
	Name:  "convert",
	Usage: "Convert an outline text file into a schedule CSV",
	Flags: []cli.Flag{
		flags.Input,
		flags.Output,
		flags.StartDate,
		flags.Community,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		return run(ctx, c, func(_ *config.Config) []pal.ServiceDef {
			return []pal.ServiceDef{
				pal.Provide(&converter{}),
			}
		})
	},
}

type converter struct {
	Logger *slog.Logger
	Config *config.Config
}

func (cv *converter) Run(_ context.Context) error {
	start, err := time.Parse("2006-01-02", cv.Config.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start date %q: %w", cv.Config.StartDate, err)
	}

	raw, err := os.ReadFile(cv.Config.Input)
	if err != nil {
		return fmt.Errorf("reading outline: %w", err)
	}

	parser := &outline.Parser{StartDate: start, Community: cv.Config.Community}
	records := parser.Parse(string(raw))

	out, err := os.Create(cv.Config.Output)
	if err != nil {
		return fmt.Errorf("creating schedule: %w", err)
	}
	defer out.Close()

	if err := schedule.Write(out, records); err != nil {
		return err
	}

	cv.Logger.Info("converted outline", "records", len(records), "output", cv.Config.Output)
	return nil
}
