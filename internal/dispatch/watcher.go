package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"stagehand/internal/config"
	"stagehand/internal/core"
)

var ticksProcessed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "stagehand_ticks_total",
	Help: "The total number of watch loop ticks",
})

// Watcher polls the schedule once a minute and publishes whatever is due at
// the current tick. The schedule file is reloaded on every tick so it can be
// edited while the loop runs. Executed (and failed) records are remembered
// in an in-memory ledger for the lifetime of the process.
type Watcher struct {
	Logger    *slog.Logger
	Config    *config.Config
	Source    core.RecordSource
	Publisher core.Publisher
	Directory core.Directory
	PostLog   core.PostLog

	d       *dispatcher
	ledger  map[ledgerKey]struct{}
	rand    *rand.Rand
	now     func() time.Time
	sleep   func(context.Context, time.Duration)
	session string
}

// ledgerKey identifies one due occurrence of a record. Marking it executed
// covers skips as well as successes: neither is ever retried.
type ledgerKey struct {
	row  int
	date string
	time string
}

type dueItem struct {
	key ledgerKey
	rec core.ScheduleRecord
}

func (w *Watcher) Init(_ context.Context) error {
	w.Logger = w.Logger.With("component", "dispatch.Watcher")
	w.ledger = map[ledgerKey]struct{}{}
	w.session = uuid.NewString()
	if w.now == nil {
		w.now = time.Now
	}
	if w.sleep == nil {
		w.sleep = sleepCtx
	}
	if w.rand == nil {
		seed := w.Config.Seed
		if seed == 0 {
			seed = w.now().UnixNano()
		}
		w.rand = rand.New(rand.NewSource(seed))
	}
	w.d = &dispatcher{
		logger:    w.Logger,
		publisher: w.Publisher,
		directory: w.Directory,
		postLog:   w.PostLog,
		index:     NewReplyIndex(),
		now:       w.now,
	}
	return nil
}

func (w *Watcher) Run(ctx context.Context) error {
	if !w.Directory.HasBots() {
		return errors.New("no bots provisioned, run setup first")
	}

	w.Logger.Info("starting watch loop", "session", w.session)

	for ctx.Err() == nil {
		w.tick(ctx)

		// Sleep to the top of the next minute before polling again.
		wait := time.Duration(60-w.now().Second()) * time.Second
		w.sleep(ctx, wait)
	}

	w.Logger.Info("watch loop stopped", "session", w.session, "executed", len(w.ledger))
	return nil
}

// tick runs one poll cycle: reload the schedule, pick the due set, publish
// it in random order. A schedule that fails to load skips the tick instead
// of stopping the loop.
func (w *Watcher) tick(ctx context.Context) {
	ticksProcessed.Inc()

	now := w.now()
	date, tm := now.Format(dateLayout), now.Format("15:04")

	records, err := w.Source.Load(ctx)
	if err != nil {
		w.Logger.Warn("reloading schedule", "error", err)
		return
	}

	var due []dueItem
	for i, rec := range records {
		if rec.Date != date || rec.Time != tm {
			continue
		}
		key := ledgerKey{row: i, date: rec.Date, time: rec.Time}
		if _, done := w.ledger[key]; done {
			continue
		}
		due = append(due, dueItem{key: key, rec: rec})
	}

	if len(due) == 0 {
		w.Logger.Debug("no records due", "date", date, "time", tm)
		return
	}
	w.Logger.Info("records due", "count", len(due), "date", date, "time", tm)

	// Randomize the batch order so the personas don't post in file order
	// every day at the exact same second.
	w.rand.Shuffle(len(due), func(i, j int) {
		due[i], due[j] = due[j], due[i]
	})

	for i, item := range due {
		if ctx.Err() != nil {
			return
		}
		if err := w.d.publish(ctx, item.rec); err != nil {
			w.d.skip(item.rec, err)
		}
		w.ledger[item.key] = struct{}{}

		if i < len(due)-1 {
			w.sleep(ctx, jitter(w.rand))
		}
	}
}

// jitter spreads batch items 2-7 seconds apart.
func jitter(r *rand.Rand) time.Duration {
	return time.Duration((2 + r.Float64()*5) * float64(time.Second))
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
