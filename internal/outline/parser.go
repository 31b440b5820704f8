// Package outline turns a hand-authored multi-day conversation outline into
// a flat, addressable list of schedule records. The grammar is deliberately
// lenient: a line that matches nothing is dropped, never an error.
package outline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"stagehand/internal/core"
)

const (
	// Posts within a day start at this hour and advance by minuteStep.
	baseHour   = 10
	minuteStep = 5

	// Authors leave this marker where generated text was meant to go.
	placeholderMarker = "/LLM generated sentence/"

	dateLayout = "2006-01-02"
)

var (
	dayHeaderRe = regexp.MustCompile(`(?i)^Day\s+(\d+):\s*(.+)$`)

	// Primary row grammar: id, account and body separated by tabs. The id is
	// optional (defaults to "0") and may carry a trailing dot.
	tabRowRe = regexp.MustCompile(`^(\d+(?:\.\d+)*)?\.?\t(.+?)\t(.*)$`)

	// Fallback grammar for outlines where tabs were lost: the id is followed
	// by whitespace and the account/body split on two or more spaces.
	spacedRowRe = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s+(.+?)\s{2,}(.*)$`)
)

type lineKind int

const (
	lineBlank lineKind = iota
	lineDayHeader
	lineTableHeader
	lineRow
	lineOther
)

func classify(line string) lineKind {
	switch {
	case line == "":
		return lineBlank
	case dayHeaderRe.MatchString(line):
		return lineDayHeader
	case strings.HasPrefix(line, "ID") && strings.Contains(line, "Bot"):
		return lineTableHeader
	case tabRowRe.MatchString(line) || spacedRowRe.MatchString(line):
		return lineRow
	default:
		return lineOther
	}
}

type state int

const (
	awaitingDay state = iota
	awaitingRow
	accumulatingBody
)

// Parser converts outline text into schedule records.
type Parser struct {
	StartDate time.Time // date of day 1
	Community string    // community slug stamped on every record
}

// row is a recognized content line, body still accumulating.
type row struct {
	id      string
	account string
	body    []string
}

// Parse walks the outline line by line. Rows seen before the first day
// header have no date to attach to and are discarded.
func (p *Parser) Parse(text string) []core.ScheduleRecord {
	var (
		records []core.ScheduleRecord
		current *row

		st           = awaitingDay
		day          int
		title        string
		minuteOffset int
	)

	flush := func() {
		if current == nil {
			return
		}
		if rec, ok := p.finalize(*current, day, title, minuteOffset); ok {
			records = append(records, rec)
		}
		minuteOffset += minuteStep
		current = nil
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)

		switch classify(line) {
		case lineDayHeader:
			flush()
			m := dayHeaderRe.FindStringSubmatch(line)
			day, _ = strconv.Atoi(m[1])
			title = strings.TrimSpace(m[2])
			minuteOffset = 0
			st = awaitingRow

		case lineTableHeader, lineBlank:
			flush()
			if st == accumulatingBody {
				st = awaitingRow
			}

		case lineRow:
			flush()
			if st == awaitingDay {
				continue
			}
			id, account, body := splitRow(line)
			current = &row{id: id, account: account, body: []string{body}}
			st = accumulatingBody

		case lineOther:
			if st == accumulatingBody && current != nil {
				current.body = append(current.body, line)
			}
		}
	}
	flush()

	return records
}

func splitRow(line string) (id, account, body string) {
	m := tabRowRe.FindStringSubmatch(line)
	if m == nil {
		m = spacedRowRe.FindStringSubmatch(line)
	}
	id = m[1]
	if id == "" {
		id = "0"
	}
	return id, strings.TrimSpace(m[2]), strings.TrimSpace(m[3])
}

// finalize assigns the time slot, derives kind and replyTo from the row id
// and cleans the body. Comments that end up empty are dropped.
func (p *Parser) finalize(r row, day int, title string, minuteOffset int) (core.ScheduleRecord, bool) {
	body := strings.Join(r.body, " ")
	body = strings.TrimSpace(strings.ReplaceAll(body, placeholderMarker, ""))

	kind := core.KindComment
	replyTo := ""
	switch segments := strings.Split(r.id, "."); {
	case r.id == "0":
		kind = core.KindSelf
	case len(segments) == 1:
		replyTo = "0"
	default:
		replyTo = strings.Join(segments[:len(segments)-1], ".")
	}

	if kind == core.KindComment && body == "" {
		return core.ScheduleRecord{}, false
	}

	rec := core.ScheduleRecord{
		Day:       day,
		Date:      p.StartDate.AddDate(0, 0, day-1).Format(dateLayout),
		Time:      timeSlot(minuteOffset),
		RowID:     r.id,
		Account:   r.account,
		Body:      body,
		Kind:      kind,
		ReplyTo:   replyTo,
		Community: p.Community,
	}
	if kind == core.KindSelf {
		rec.Title = title
	}
	return rec, true
}

func timeSlot(minuteOffset int) string {
	return fmt.Sprintf("%02d:%02d", baseHour+minuteOffset/60, minuteOffset%60)
}
