// Package dispatch matches schedule records against wall-clock time and
// publishes each one at most once, resolving reply references as threads and
// comments come into existence.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"stagehand/internal/core"
)

var (
	recordsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stagehand_records_published_total",
		Help: "The total number of records published, by kind",
	}, []string{"kind"})

	recordsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stagehand_records_skipped_total",
		Help: "The total number of records skipped, by reason",
	}, []string{"reason"})
)

// dispatcher holds the per-record publish path shared by the single-pass
// runner and the watch loop.
type dispatcher struct {
	logger    *slog.Logger
	publisher core.Publisher
	directory core.Directory
	postLog   core.PostLog
	index     *ReplyIndex
	now       func() time.Time
}

// publish resolves the record's identity and destination, performs the
// platform call and registers the result. Every error it returns is a
// per-record skip condition for the caller.
func (d *dispatcher) publish(ctx context.Context, rec core.ScheduleRecord) error {
	cred, err := d.directory.BotFor(rec.Account)
	if err != nil {
		return err
	}

	community := rec.Community
	if community == "" {
		if community, err = d.directory.CommunityFor(cred.ID); err != nil {
			return err
		}
	}

	switch rec.Kind {
	case core.KindSelf:
		receipt, err := d.publisher.SubmitThread(ctx, cred.Token, community, rec.Title, rec.Body)
		if err != nil {
			return fmt.Errorf("submitting thread: %w", err)
		}
		d.index.Register(rec.Date, rec.RowID, receipt.ThreadID)
		d.logger.Info("created thread", "title", truncate(rec.Title, 50), "account", rec.Account)
		d.record(ctx, core.PostedEntry{
			Timestamp: d.now(),
			Type:      "thread",
			Account:   rec.Account,
			ThreadID:  receipt.ThreadID,
			PostID:    receipt.PostID,
		})

	case core.KindComment:
		target, err := d.index.Resolve(rec)
		if err != nil {
			return err
		}
		receipt, err := d.publisher.SubmitReply(ctx, cred.Token, target.ThreadID, rec.Body, target.ParentPostID)
		if err != nil {
			return fmt.Errorf("submitting reply: %w", err)
		}
		d.index.Register(rec.Date, rec.RowID, receipt.PostID)
		d.logger.Info("created reply", "account", rec.Account, "row", rec.RowID, "depth", rec.Depth())
		d.record(ctx, core.PostedEntry{
			Timestamp: d.now(),
			Type:      "comment",
			Account:   rec.Account,
			ThreadID:  target.ThreadID,
			PostID:    receipt.PostID,
			ParentID:  target.ParentPostID,
		})
	}

	recordsPublished.WithLabelValues(string(rec.Kind)).Inc()
	return nil
}

// record appends to the audit log. Log failures must not fail the record:
// the post is already out.
func (d *dispatcher) record(ctx context.Context, entry core.PostedEntry) {
	if err := d.postLog.Append(ctx, entry); err != nil {
		d.logger.Warn("appending to post log", "error", err)
	}
}

// skip logs a per-record failure and counts it. The loop always continues.
func (d *dispatcher) skip(rec core.ScheduleRecord, err error) {
	d.logger.Warn("skipping record", "account", rec.Account, "row", rec.RowID, "error", err)
	recordsSkipped.WithLabelValues(skipReason(err)).Inc()
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, core.ErrUnknownAccount):
		return "unknown_account"
	case errors.Is(err, core.ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, core.ErrUnresolvedReference):
		return "unresolved_reference"
	default:
		return "publish_error"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
