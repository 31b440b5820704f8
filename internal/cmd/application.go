package cmd

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"stagehand/internal/cmd/flags"
	"stagehand/internal/config"
	"stagehand/pkg/clicfg"
)

const VERSION = "0.1.0"

var cmd = &cli.Command{
	Name:    "stagehand",
	Usage:   "Stagehand drives a cast of scripted personas through a forum posting timeline",
	Version: VERSION,
	Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
		if err := initLogger(c.String("log-level")); err != nil {
			return ctx, err
		}
		return ctx, nil
	},
	Flags: []cli.Flag{
		flags.LogLevel,
	},
	Commands: []*cli.Command{
		convertCmd,
		runOnceCmd,
		watchCmd,
		setupCmd,
		statusCmd,
	},
}

func Run() {
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// run parses the command's flags into the config, hands it to the service
// builder and drives the resulting pal application until it finishes or a
// signal arrives.
func run(ctx context.Context, c *cli.Command, build func(cfg *config.Config) []pal.ServiceDef) error {
	cfg := &config.Config{}
	if err := clicfg.ParseFlags(c, cfg); err != nil {
		return err
	}

	services := append([]pal.ServiceDef{pal.Provide(cfg)}, build(cfg)...)

	return pal.New(services...).
		InjectSlog().
		InitTimeout(10 * time.Second).
		HealthCheckTimeout(1 * time.Second).
		ShutdownTimeout(10 * time.Second).
		Run(ctx, syscall.SIGINT, syscall.SIGTERM)
}
