package flags

import (
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

var LogLevel = &cli.StringFlag{
	Name:    "log-level",
	Aliases: []string{"l"},
	Usage:   "The level of the logs",
	Value:   "info",
	Validator: func(value string) error {
		if !slices.Contains(validLogLevels, value) {
			return fmt.Errorf("invalid log level: %s, allowed values are: %s", value, validLogLevels)
		}
		return nil
	},
	Sources: cli.EnvVars("LOG_LEVEL"),
}

var APIURL = &cli.StringFlag{
	Name:    "api-url",
	Usage:   "Base URL of the forum API",
	Value:   "http://localhost:3000/api",
	Sources: cli.EnvVars("FORUM_API_URL"),
}

var AdminEmail = &cli.StringFlag{
	Name:    "admin-email",
	Usage:   "Forum admin account email",
	Sources: cli.EnvVars("FORUM_ADMIN_EMAIL"),
}

var StateFile = &cli.StringFlag{
	Name:    "state-file",
	Usage:   "Path of the forum state file",
	Value:   "state/forum_setup.json",
	Sources: cli.EnvVars("STATE_FILE"),
}

var Schedule = &cli.StringFlag{
	Name:    "schedule",
	Aliases: []string{"s"},
	Usage:   "Path of the schedule CSV",
	Value:   "schedules/schedule.csv",
	Sources: cli.EnvVars("SCHEDULE_FILE"),
}

var PostLog = &cli.StringFlag{
	Name:    "post-log",
	Usage:   "Path of the posted entries log",
	Value:   "state/posted_log.jsonl",
	Sources: cli.EnvVars("POST_LOG_FILE"),
}

var Communities = &cli.StringFlag{
	Name:    "communities",
	Usage:   "Path of the communities config",
	Value:   "config/communities.yaml",
	Sources: cli.EnvVars("COMMUNITIES_FILE"),
}

var Date = &cli.StringFlag{
	Name:  "date",
	Usage: "Run records scheduled for this date (YYYY-MM-DD) instead of today",
}

var SleepBetween = &cli.IntFlag{
	Name:  "sleep-between",
	Usage: "Seconds to wait between posts in a single pass",
	Value: 3,
}

var MetricsAddr = &cli.StringFlag{
	Name:    "metrics-addr",
	Usage:   "Listen address of the metrics server",
	Value:   ":8080",
	Sources: cli.EnvVars("METRICS_ADDR"),
}

var Seed = &cli.IntFlag{
	Name:  "seed",
	Usage: "Seed for batch shuffling and jitter, 0 picks one from the clock",
	Value: 0,
}

var Input = &cli.StringFlag{
	Name:     "input",
	Aliases:  []string{"i"},
	Usage:    "Outline text file to convert",
	Required: true,
}

var Output = &cli.StringFlag{
	Name:    "output",
	Aliases: []string{"o"},
	Usage:   "Schedule CSV to write",
	Value:   "schedules/schedule.csv",
}

var StartDate = &cli.StringFlag{
	Name:     "start-date",
	Usage:    "Calendar date of day 1 (YYYY-MM-DD)",
	Required: true,
}

var Community = &cli.StringFlag{
	Name:     "community",
	Usage:    "Community slug stamped on converted records",
	Required: true,
}
