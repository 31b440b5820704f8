package dispatch

import (
	"fmt"
	"strings"

	"stagehand/internal/core"
)

// ReplyIndex maps published rows to the identifiers the platform assigned
// them. Keys are scoped by date because row ids repeat across days. The index
// lives for the process lifetime and only ever grows.
type ReplyIndex struct {
	refs map[indexKey]string
}

type indexKey struct {
	date string
	ref  string
}

func NewReplyIndex() *ReplyIndex {
	return &ReplyIndex{refs: map[indexKey]string{}}
}

// Register records the platform identifier for a published row: the thread
// id for a self record, the post id for a comment.
func (ix *ReplyIndex) Register(date, rowID, id string) {
	ix.refs[indexKey{date: date, ref: rowID}] = id
}

// Len reports how many rows have been registered.
func (ix *ReplyIndex) Len() int {
	return len(ix.refs)
}

// Target is the resolved destination of a comment record.
type Target struct {
	ThreadID     string
	ParentPostID string // empty when the reply targets the thread directly
}

// Resolve computes where a comment record should be published. The thread
// reference is the first segment of reply_to; a dotted reply_to additionally
// names a parent post. A missing thread reference is an error the caller
// skips on; a missing parent silently degrades to a thread-level reply.
func (ix *ReplyIndex) Resolve(rec core.ScheduleRecord) (Target, error) {
	threadRef, _, nested := strings.Cut(rec.ReplyTo, ".")

	threadID, ok := ix.refs[indexKey{date: rec.Date, ref: threadRef}]
	if !ok {
		return Target{}, fmt.Errorf("%w: %q (thread not found)", core.ErrUnresolvedReference, rec.ReplyTo)
	}

	target := Target{ThreadID: threadID}
	if nested {
		target.ParentPostID = ix.refs[indexKey{date: rec.Date, ref: rec.ReplyTo}]
	}
	return target, nil
}
