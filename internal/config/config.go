package config

import (
	"context"

	"github.com/kelseyhightower/envconfig"
)

// Config carries everything the commands need. Flag-tagged fields are bound
// from CLI flags; secrets come from the environment only.
type Config struct {
	LogLevel string `flag:"log-level"`

	APIURL     string `flag:"api-url"`
	AdminEmail string `flag:"admin-email"`

	StateFile       string `flag:"state-file"`
	ScheduleFile    string `flag:"schedule"`
	PostLogFile     string `flag:"post-log"`
	CommunitiesFile string `flag:"communities"`

	Date         string `flag:"date"`
	SleepBetween int    `flag:"sleep-between"`
	MetricsAddr  string `flag:"metrics-addr"`
	Seed         int64  `flag:"seed"`

	Input     string `flag:"input"`
	Output    string `flag:"output"`
	StartDate string `flag:"start-date"`
	Community string `flag:"community"`

	AdminPassword string `envconfig:"FORUM_ADMIN_PASSWORD"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`
}

func (c *Config) Init(_ context.Context) error {
	return envconfig.Process("stagehand", c)
}
