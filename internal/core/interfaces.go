package core

import "context"

// Publisher performs the actual network calls against the forum. Both calls
// are synchronous and fallible; the scheduler does not look past "failed".
type Publisher interface {
	SubmitThread(ctx context.Context, token, communitySlug, title, content string) (ThreadReceipt, error)
	SubmitReply(ctx context.Context, token, threadID, content, parentPostID string) (ReplyReceipt, error)
}

// Directory resolves persona names to bot credentials and bots to their home
// community. Missing entries are per-record skip conditions, never fatal.
type Directory interface {
	// HasBots reports whether any bots are provisioned at all; dispatch
	// refuses to start against an empty directory.
	HasBots() bool
	BotFor(account string) (BotCredential, error)
	CommunityFor(botID string) (string, error)
}

// RecordSource yields the current schedule. The watch loop calls Load on
// every tick so external edits take effect without a restart.
type RecordSource interface {
	Load(ctx context.Context) ([]ScheduleRecord, error)
}

// PostLog is the durable audit trail of everything actually published.
type PostLog interface {
	Append(ctx context.Context, entry PostedEntry) error
}
