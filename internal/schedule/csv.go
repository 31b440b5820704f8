// Package schedule reads and writes the flat tabular form of a parsed
// outline. The column set is the public contract between the converter and
// the dispatch loop; row ids are rebuilt from reply_to values on load.
package schedule

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"stagehand/internal/core"
)

var columns = []string{"datetime", "time", "account", "title", "body", "kind", "reply_to", "community"}

// Write emits records as CSV, header first, in the given order.
func Write(w io.Writer, records []core.ScheduleRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{rec.Date, rec.Time, rec.Account, rec.Title, rec.Body, string(rec.Kind), rec.ReplyTo, rec.Community}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read loads records from CSV in file order. Day indices are assigned per
// distinct date and row ids are reconstructed from reply_to values, siblings
// numbered densely in order of appearance.
func Read(r io.Reader) ([]core.ScheduleRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading schedule header: %w", err)
	}
	if strings.Join(header, ",") != strings.Join(columns, ",") {
		return nil, fmt.Errorf("unexpected schedule header: %q", strings.Join(header, ","))
	}
	cr.FieldsPerRecord = len(columns)

	var (
		records  []core.ScheduleRecord
		days     = map[string]int{}
		siblings = map[string]int{}
		produced = map[string]bool{}
		dangling = map[string]bool{}
	)

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading schedule row: %w", err)
		}

		rec := core.ScheduleRecord{
			Date:      strings.TrimSpace(row[0]),
			Time:      strings.TrimSpace(row[1]),
			Account:   strings.TrimSpace(row[2]),
			Title:     strings.TrimSpace(row[3]),
			Body:      strings.TrimSpace(row[4]),
			Kind:      core.PostKind(strings.TrimSpace(row[5])),
			ReplyTo:   strings.TrimSpace(row[6]),
			Community: strings.TrimSpace(row[7]),
		}

		switch rec.Kind {
		case core.KindSelf, core.KindComment:
		default:
			return nil, fmt.Errorf("row %d: unknown kind %q", len(records)+1, rec.Kind)
		}

		if _, ok := days[rec.Date]; !ok {
			days[rec.Date] = len(days) + 1
		}
		rec.Day = days[rec.Date]

		if rec.Kind == core.KindComment {
			markDangling(produced, dangling, rec)
		}
		rec.RowID = nextRowID(siblings, dangling, rec)
		produced[rec.Date+"/"+rec.RowID] = true

		records = append(records, rec)
	}

	return records, nil
}

// markDangling records reply_to references to rows that were never produced,
// e.g. a parent whose empty body got it dropped at conversion time. Parents
// precede children in authoring order, so a reference to an id not yet seen
// can only mean the row is gone.
func markDangling(produced, dangling map[string]bool, rec core.ScheduleRecord) {
	for ref := rec.ReplyTo; ref != "" && ref != "0"; {
		if key := rec.Date + "/" + ref; !produced[key] {
			dangling[key] = true
		}
		i := strings.LastIndex(ref, ".")
		if i < 0 {
			break
		}
		ref = ref[:i]
	}
}

// nextRowID rebuilds the day-scoped hierarchical id the converter dropped.
// The thread is always "0"; a comment becomes the next sibling under its
// reply_to, skipping ordinals reserved by dangling references so the orphan
// stays unresolvable instead of landing on the wrong post. Matches authored
// ids whenever siblings were numbered from 1.
func nextRowID(siblings map[string]int, dangling map[string]bool, rec core.ScheduleRecord) string {
	if rec.Kind == core.KindSelf {
		return "0"
	}
	key := rec.Date + "/" + rec.ReplyTo
	for {
		siblings[key]++
		id := strconv.Itoa(siblings[key])
		if rec.ReplyTo != "0" {
			id = rec.ReplyTo + "." + id
		}
		if !dangling[rec.Date+"/"+id] {
			return id
		}
	}
}

// FileSource re-reads a schedule CSV on every Load, so edits to the file are
// picked up mid-run.
type FileSource struct {
	Path string
}

func (s *FileSource) Load(_ context.Context) ([]core.ScheduleRecord, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening schedule: %w", err)
	}
	defer f.Close()

	return Read(f)
}
