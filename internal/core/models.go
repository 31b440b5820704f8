package core

import (
	"strings"
	"time"
)

// PostKind tells whether a record opens a thread or replies into one.
type PostKind string

const (
	KindSelf    PostKind = "self"
	KindComment PostKind = "comment"
)

// ScheduleRecord is one unit of content to publish: either a thread-opening
// post or a reply addressed by its position in the reply tree.
type ScheduleRecord struct {
	Day       int    // 1-based day index within the outline
	Date      string // YYYY-MM-DD
	Time      string // HH:MM, 24-hour
	RowID     string // dot-separated path, unique within its day ("0", "1", "1.2", ...)
	Account   string // persona name, mapped to a bot identity at dispatch time
	Title     string // thread title, only set for self records
	Body      string
	Kind      PostKind
	ReplyTo   string // parent row id; empty for self records
	Community string // target community slug; may be empty
}

// Depth is the nesting depth of the record in the reply tree.
func (r ScheduleRecord) Depth() int {
	return strings.Count(r.RowID, ".") + 1
}

// BotCredential identifies a provisioned bot and carries its API token.
type BotCredential struct {
	ID    string
	Token string
}

// ThreadReceipt is the platform's answer to a thread creation.
type ThreadReceipt struct {
	ThreadID string
	PostID   string
}

// ReplyReceipt is the platform's answer to a reply creation.
type ReplyReceipt struct {
	PostID string
}

// PostedEntry is one row of the publish audit log.
type PostedEntry struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"` // "thread" or "comment"
	Account   string    `json:"account"`
	ThreadID  string    `json:"thread_id"`
	PostID    string    `json:"post_id"`
	ParentID  string    `json:"parent_id,omitempty"`
}

func (PostedEntry) TableName() string {
	return "posted_entries"
}
