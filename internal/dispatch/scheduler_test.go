package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"stagehand/internal/config"
	"stagehand/internal/core"
)

type threadCall struct {
	token, community, title, body string
}

type replyCall struct {
	token, threadID, body, parentPostID string
}

type fakePublisher struct {
	threads []threadCall
	replies []replyCall
	failOn  string // body that makes the call fail
}

func (p *fakePublisher) SubmitThread(_ context.Context, token, communitySlug, title, content string) (core.ThreadReceipt, error) {
	if content == p.failOn {
		return core.ThreadReceipt{}, errors.New("platform said no")
	}
	p.threads = append(p.threads, threadCall{token: token, community: communitySlug, title: title, body: content})
	n := len(p.threads)
	return core.ThreadReceipt{ThreadID: fmt.Sprintf("thread-%d", n), PostID: fmt.Sprintf("post-t%d", n)}, nil
}

func (p *fakePublisher) SubmitReply(_ context.Context, token, threadID, content, parentPostID string) (core.ReplyReceipt, error) {
	if content == p.failOn {
		return core.ReplyReceipt{}, errors.New("platform said no")
	}
	p.replies = append(p.replies, replyCall{token: token, threadID: threadID, body: content, parentPostID: parentPostID})
	return core.ReplyReceipt{PostID: fmt.Sprintf("post-%d", len(p.replies))}, nil
}

func (p *fakePublisher) calls() int { return len(p.threads) + len(p.replies) }

type fakeDirectory struct {
	bots        map[string]core.BotCredential
	communities map[string]string
}

func newFakeDirectory(accounts ...string) *fakeDirectory {
	d := &fakeDirectory{bots: map[string]core.BotCredential{}, communities: map[string]string{}}
	for i, account := range accounts {
		id := fmt.Sprintf("bot-%d", i+1)
		d.bots[account] = core.BotCredential{ID: id, Token: "token-" + account}
		d.communities[id] = "gardening"
	}
	return d
}

func (d *fakeDirectory) HasBots() bool { return len(d.bots) > 0 }

func (d *fakeDirectory) BotFor(account string) (core.BotCredential, error) {
	cred, ok := d.bots[account]
	if !ok {
		return core.BotCredential{}, fmt.Errorf("%w: %q", core.ErrUnknownAccount, account)
	}
	if cred.Token == "" {
		return core.BotCredential{}, fmt.Errorf("%w: %q", core.ErrMissingCredential, account)
	}
	return cred, nil
}

func (d *fakeDirectory) CommunityFor(botID string) (string, error) {
	slug, ok := d.communities[botID]
	if !ok {
		return "", fmt.Errorf("%w: no community for %q", core.ErrUnknownAccount, botID)
	}
	return slug, nil
}

type memorySource struct {
	records []core.ScheduleRecord
	err     error
	loads   int
}

func (s *memorySource) Load(_ context.Context) ([]core.ScheduleRecord, error) {
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

type memoryLog struct {
	entries []core.PostedEntry
}

func (l *memoryLog) Append(_ context.Context, entry core.PostedEntry) error {
	l.entries = append(l.entries, entry)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func self(date, tm, account, title, body string) core.ScheduleRecord {
	return core.ScheduleRecord{Date: date, Time: tm, RowID: "0", Account: account, Title: title, Body: body, Kind: core.KindSelf, Community: "gardening"}
}

func comment(date, tm, rowID, replyTo, account, body string) core.ScheduleRecord {
	return core.ScheduleRecord{Date: date, Time: tm, RowID: rowID, Account: account, Body: body, Kind: core.KindComment, ReplyTo: replyTo, Community: "gardening"}
}

func newTestWatcher(t *testing.T, src core.RecordSource, pub core.Publisher, dir core.Directory, log core.PostLog, at time.Time) *Watcher {
	t.Helper()

	current := at
	w := &Watcher{
		Logger:    testLogger(),
		Config:    &config.Config{Seed: 42},
		Source:    src,
		Publisher: pub,
		Directory: dir,
		PostLog:   log,
		now:       func() time.Time { return current },
		sleep:     func(context.Context, time.Duration) {},
	}
	require.NoError(t, w.Init(t.Context()))
	return w
}

func TestWatcherTickIdempotent(t *testing.T) {
	t.Parallel()

	src := &memorySource{records: []core.ScheduleRecord{
		self("2025-06-01", "10:00", "alice", "Spring planting", "Opening"),
		comment("2025-06-01", "10:05", "1", "0", "bob", "Not due yet"),
	}}
	pub := &fakePublisher{}
	w := newTestWatcher(t, src, pub, newFakeDirectory("alice", "bob"), &memoryLog{}, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	w.tick(t.Context())
	w.tick(t.Context())

	require.Len(t, pub.threads, 1)
	require.Empty(t, pub.replies)
	require.Equal(t, threadCall{token: "token-alice", community: "gardening", title: "Spring planting", body: "Opening"}, pub.threads[0])
	require.Len(t, w.ledger, 1)
}

func TestWatcherBatchCoversAllDueRecords(t *testing.T) {
	t.Parallel()

	src := &memorySource{records: []core.ScheduleRecord{
		self("2025-06-01", "10:00", "alice", "One", "a"),
		self("2025-06-01", "10:00", "bob", "Two", "b"),
		self("2025-06-01", "10:00", "carol", "Three", "c"),
	}}
	pub := &fakePublisher{}
	w := newTestWatcher(t, src, pub, newFakeDirectory("alice", "bob", "carol"), &memoryLog{}, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	w.tick(t.Context())

	require.Len(t, pub.threads, 3)
	got := lo.Map(pub.threads, func(c threadCall, _ int) string { return c.title })
	sort.Strings(got)
	require.Equal(t, []string{"One", "Three", "Two"}, got)
	require.Len(t, w.ledger, 3)
}

func TestWatcherPublishesReplyAfterThread(t *testing.T) {
	t.Parallel()

	src := &memorySource{records: []core.ScheduleRecord{
		self("2025-06-01", "10:00", "alice", "Thread", "Opening"),
		comment("2025-06-01", "10:05", "1", "0", "bob", "First comment"),
		comment("2025-06-01", "10:10", "1.1", "1", "carol", "Nested"),
		comment("2025-06-01", "10:15", "1.1.1", "1.1", "dave", "Deeper"),
	}}
	pub := &fakePublisher{}
	log := &memoryLog{}

	current := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	w := &Watcher{
		Logger:    testLogger(),
		Config:    &config.Config{Seed: 42},
		Source:    src,
		Publisher: pub,
		Directory: newFakeDirectory("alice", "bob", "carol", "dave"),
		PostLog:   log,
		now:       func() time.Time { return current },
		sleep:     func(context.Context, time.Duration) {},
	}
	require.NoError(t, w.Init(t.Context()))

	for range 4 {
		w.tick(t.Context())
		current = current.Add(5 * time.Minute)
	}

	require.Len(t, pub.threads, 1)
	require.Len(t, pub.replies, 3)
	require.Equal(t, replyCall{token: "token-bob", threadID: "thread-1", body: "First comment"}, pub.replies[0])
	// Replies thread through the first segment of reply_to; only a dotted
	// reply_to names a distinct parent post.
	require.Equal(t, replyCall{token: "token-carol", threadID: "post-1", body: "Nested"}, pub.replies[1])
	require.Equal(t, replyCall{token: "token-dave", threadID: "post-1", body: "Deeper", parentPostID: "post-2"}, pub.replies[2])

	require.Len(t, log.entries, 4)
	require.Equal(t, "thread", log.entries[0].Type)
	require.Equal(t, "comment", log.entries[1].Type)
	require.Equal(t, "thread-1", log.entries[1].ThreadID)
}

func TestWatcherUnresolvedCommentMarkedExecuted(t *testing.T) {
	t.Parallel()

	src := &memorySource{records: []core.ScheduleRecord{
		comment("2025-06-01", "10:00", "1", "0", "bob", "Orphaned"),
	}}
	pub := &fakePublisher{}
	w := newTestWatcher(t, src, pub, newFakeDirectory("bob"), &memoryLog{}, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	w.tick(t.Context())
	w.tick(t.Context())

	require.Zero(t, pub.calls())
	require.Len(t, w.ledger, 1)
}

func TestWatcherPublishFailureMarkedAndContinues(t *testing.T) {
	t.Parallel()

	src := &memorySource{records: []core.ScheduleRecord{
		self("2025-06-01", "10:00", "alice", "One", "boom"),
		self("2025-06-01", "10:00", "bob", "Two", "fine"),
	}}
	pub := &fakePublisher{failOn: "boom"}
	w := newTestWatcher(t, src, pub, newFakeDirectory("alice", "bob"), &memoryLog{}, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	w.tick(t.Context())
	require.Len(t, pub.threads, 1)
	require.Equal(t, "Two", pub.threads[0].title)
	require.Len(t, w.ledger, 2)

	w.tick(t.Context())
	require.Len(t, pub.threads, 1)
}

func TestWatcherUnknownAccountSkipped(t *testing.T) {
	t.Parallel()

	src := &memorySource{records: []core.ScheduleRecord{
		self("2025-06-01", "10:00", "mallory", "Who", "dis"),
	}}
	pub := &fakePublisher{}
	w := newTestWatcher(t, src, pub, newFakeDirectory("alice"), &memoryLog{}, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	w.tick(t.Context())

	require.Zero(t, pub.calls())
	require.Len(t, w.ledger, 1)
}

func TestWatcherReloadsSourceEveryTick(t *testing.T) {
	t.Parallel()

	src := &memorySource{}
	w := newTestWatcher(t, src, &fakePublisher{}, newFakeDirectory("alice"), &memoryLog{}, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	w.tick(t.Context())
	w.tick(t.Context())
	w.tick(t.Context())

	require.Equal(t, 3, src.loads)
}

func TestWatcherSourceErrorSkipsTick(t *testing.T) {
	t.Parallel()

	src := &memorySource{
		records: []core.ScheduleRecord{self("2025-06-01", "10:00", "alice", "One", "a")},
		err:     errors.New("schedule vanished"),
	}
	pub := &fakePublisher{}
	w := newTestWatcher(t, src, pub, newFakeDirectory("alice"), &memoryLog{}, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	w.tick(t.Context())
	require.Zero(t, pub.calls())
	require.Empty(t, w.ledger)

	src.err = nil
	w.tick(t.Context())
	require.Len(t, pub.threads, 1)
}

func TestWatcherRunRequiresBots(t *testing.T) {
	t.Parallel()

	w := newTestWatcher(t, &memorySource{}, &fakePublisher{}, newFakeDirectory(), &memoryLog{}, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	require.ErrorContains(t, w.Run(t.Context()), "no bots provisioned")
}

func TestWatcherRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	w := newTestWatcher(t, &memorySource{}, &fakePublisher{}, newFakeDirectory("alice"), &memoryLog{}, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	require.NoError(t, w.Run(ctx))
}

func newTestRunner(t *testing.T, cfg *config.Config, src core.RecordSource, pub core.Publisher, dir core.Directory, slept *int) *Runner {
	t.Helper()

	r := &Runner{
		Logger:    testLogger(),
		Config:    cfg,
		Source:    src,
		Publisher: pub,
		Directory: dir,
		PostLog:   &memoryLog{},
		now:       func() time.Time { return time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC) },
		sleep:     func(time.Duration) { *slept++ },
	}
	require.NoError(t, r.Init(t.Context()))
	return r
}

func TestRunnerFiltersDateKeepsOrder(t *testing.T) {
	t.Parallel()

	src := &memorySource{records: []core.ScheduleRecord{
		self("2025-06-01", "10:00", "alice", "Day one", "Opening"),
		comment("2025-06-01", "10:05", "1", "0", "bob", "Comment"),
		self("2025-06-02", "10:00", "carol", "Day two", "Other"),
	}}
	pub := &fakePublisher{}
	var slept int
	r := newTestRunner(t, &config.Config{Date: "2025-06-01", SleepBetween: 3}, src, pub, newFakeDirectory("alice", "bob", "carol"), &slept)

	require.NoError(t, r.Run(t.Context()))

	require.Len(t, pub.threads, 1)
	require.Len(t, pub.replies, 1)
	require.Equal(t, "Day one", pub.threads[0].title)
	require.Equal(t, "thread-1", pub.replies[0].threadID)
	require.Equal(t, 2, slept)
}

func TestRunnerDefaultsToToday(t *testing.T) {
	t.Parallel()

	src := &memorySource{records: []core.ScheduleRecord{
		self("2025-06-01", "10:00", "alice", "Today", "Opening"),
		self("2025-06-02", "10:00", "bob", "Tomorrow", "Other"),
	}}
	pub := &fakePublisher{}
	var slept int
	r := newTestRunner(t, &config.Config{}, src, pub, newFakeDirectory("alice", "bob"), &slept)

	require.NoError(t, r.Run(t.Context()))

	require.Len(t, pub.threads, 1)
	require.Equal(t, "Today", pub.threads[0].title)
}

func TestRunnerContinuesOnFailure(t *testing.T) {
	t.Parallel()

	src := &memorySource{records: []core.ScheduleRecord{
		self("2025-06-01", "10:00", "alice", "One", "boom"),
		self("2025-06-01", "10:05", "bob", "Two", "fine"),
	}}
	pub := &fakePublisher{failOn: "boom"}
	var slept int
	r := newTestRunner(t, &config.Config{Date: "2025-06-01", SleepBetween: 1}, src, pub, newFakeDirectory("alice", "bob"), &slept)

	require.NoError(t, r.Run(t.Context()))

	require.Len(t, pub.threads, 1)
	require.Equal(t, "Two", pub.threads[0].title)
	// No pacing sleep after a skipped record.
	require.Equal(t, 1, slept)
}

func TestRunnerCommunityFallback(t *testing.T) {
	t.Parallel()

	rec := self("2025-06-01", "10:00", "alice", "One", "a")
	rec.Community = ""
	src := &memorySource{records: []core.ScheduleRecord{rec}}
	pub := &fakePublisher{}
	var slept int
	r := newTestRunner(t, &config.Config{Date: "2025-06-01"}, src, pub, newFakeDirectory("alice"), &slept)

	require.NoError(t, r.Run(t.Context()))

	require.Len(t, pub.threads, 1)
	require.Equal(t, "gardening", pub.threads[0].community)
}

func TestRunnerRequiresBots(t *testing.T) {
	t.Parallel()

	var slept int
	r := newTestRunner(t, &config.Config{}, &memorySource{}, &fakePublisher{}, newFakeDirectory(), &slept)

	require.ErrorContains(t, r.Run(t.Context()), "no bots provisioned")
}

func TestRunnerPropagatesSourceError(t *testing.T) {
	t.Parallel()

	src := &memorySource{err: errors.New("no such file")}
	var slept int
	r := newTestRunner(t, &config.Config{Date: "2025-06-01"}, src, &fakePublisher{}, newFakeDirectory("alice"), &slept)

	require.ErrorContains(t, r.Run(t.Context()), "no such file")
}
