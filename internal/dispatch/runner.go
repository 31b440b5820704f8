package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"stagehand/internal/config"
	"stagehand/internal/core"
)

const dateLayout = "2006-01-02"

// Runner executes every record scheduled for a single date, in outline
// order, then exits. Each record is visited exactly once, so no idempotency
// tracking is needed.
type Runner struct {
	Logger    *slog.Logger
	Config    *config.Config
	Source    core.RecordSource
	Publisher core.Publisher
	Directory core.Directory
	PostLog   core.PostLog

	d     *dispatcher
	now   func() time.Time
	sleep func(time.Duration)
}

func (r *Runner) Init(_ context.Context) error {
	r.Logger = r.Logger.With("component", "dispatch.Runner")
	if r.now == nil {
		r.now = time.Now
	}
	if r.sleep == nil {
		r.sleep = time.Sleep
	}
	r.d = &dispatcher{
		logger:    r.Logger,
		publisher: r.Publisher,
		directory: r.Directory,
		postLog:   r.PostLog,
		index:     NewReplyIndex(),
		now:       r.now,
	}
	return nil
}

func (r *Runner) Run(ctx context.Context) error {
	if !r.Directory.HasBots() {
		return errors.New("no bots provisioned, run setup first")
	}

	date := r.Config.Date
	if date == "" {
		date = r.now().Format(dateLayout)
	}

	records, err := r.Source.Load(ctx)
	if err != nil {
		return err
	}

	due := lo.Filter(records, func(rec core.ScheduleRecord, _ int) bool {
		return rec.Date == date
	})
	r.Logger.Info("running schedule", "date", date, "records", len(due))

	for _, rec := range due {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.d.publish(ctx, rec); err != nil {
			r.d.skip(rec, err)
			continue
		}
		r.sleep(time.Duration(r.Config.SleepBetween) * time.Second)
	}

	r.Logger.Info("schedule run complete", "date", date)
	return nil
}
