package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"planos/internal/goals"
)

// GoalStore is the part of goals.Service the importer needs.
type GoalStore interface {
	ListGoals(ctx context.Context, ownerID int64) ([]goals.Goal, error)
	CreateGoal(ctx context.Context, ownerID int64, input goals.CreateGoalInput) (goals.Goal, error)
	LogProgress(ctx context.Context, ownerID, goalID int64, input goals.LogProgressInput) (goals.ProgressLog, error)
	ListProgressForOwner(ctx context.Context, ownerID int64) ([]goals.ProgressEntry, error)
}

type Summary struct {
	TotalRows         int             `json:"totalRows"`
	Imported          int             `json:"imported"`
	GoalsCreated      int             `json:"goalsCreated"`
	SkippedDuplicates []SkippedRecord `json:"skippedDuplicates"`
	Failed            []FailedRecord  `json:"failed"`
	TruncatedRecords  bool            `json:"truncatedRecords,omitempty"`
}

type SkippedRecord struct {
	Row    int    `json:"row"`
	Goal   string `json:"goal,omitempty"`
	Reason string `json:"reason"`
}

type FailedRecord struct {
	Row   int    `json:"row"`
	Goal  string `json:"goal,omitempty"`
	Error string `json:"error"`
}

var ErrInvalidCSV = errors.New("invalid csv upload")

// MaxImportRows limits the number of data rows processed per CSV import to
// prevent excessive memory usage and long-running requests.
const MaxImportRows = 1000

// MaxFailedRecords caps the number of failed/skipped records stored in the
// summary to avoid unbounded memory growth from malformed uploads.
const MaxFailedRecords = 100

// Canonical column keys and the header spellings that map onto them.
const (
	columnGoal     = "goal"
	columnLoggedAt = "loggedat"
	columnValue    = "value"
	columnNote     = "note"
)

var headerAliases = map[string]string{
	"objetivo":      columnGoal,
	"goal":          columnGoal,
	"registrado em": columnLoggedAt,
	"loggedat":      columnLoggedAt,
	"logged_at":     columnLoggedAt,
	"valor":         columnValue,
	"value":         columnValue,
	"observação":    columnNote,
	"observacao":    columnNote,
	"note":          columnNote,
}

var requiredColumns = []string{columnGoal, columnValue}

// CSVImporter loads progress samples from the CSV produced by the exporter.
// Rows naming an unknown goal create that goal first.
type CSVImporter struct {
	goals GoalStore
}

func NewCSVImporter(store GoalStore) *CSVImporter {
	return &CSVImporter{goals: store}
}

func (i *CSVImporter) Import(ctx context.Context, reader io.Reader, ownerID int64) (Summary, error) {
	if i.goals == nil {
		return Summary{}, fmt.Errorf("%w: goal store is not configured", ErrInvalidCSV)
	}

	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Summary{}, fmt.Errorf("%w: file is empty", ErrInvalidCSV)
		}
		return Summary{}, fmt.Errorf("%w: failed to read header", ErrInvalidCSV)
	}

	columns, err := normalizeHeader(header)
	if err != nil {
		return Summary{}, err
	}

	type parsedRow struct {
		number int
		values map[string]string
	}

	var rows []parsedRow
	rowNumber := 1
	totalRows := 0

	for {
		record, err := csvReader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Summary{}, fmt.Errorf("%w: failed to read row %d", ErrInvalidCSV, rowNumber+1)
		}
		rowNumber++
		values := mapRecord(columns, record)
		if isRowEmpty(values) {
			continue
		}

		totalRows++
		if totalRows > MaxImportRows {
			return Summary{}, fmt.Errorf("%w: CSV exceeds maximum of %d rows", ErrInvalidCSV, MaxImportRows)
		}

		rows = append(rows, parsedRow{number: rowNumber, values: values})
	}

	existingGoals, err := i.goals.ListGoals(ctx, ownerID)
	if err != nil {
		return Summary{}, err
	}
	existingEntries, err := i.goals.ListProgressForOwner(ctx, ownerID)
	if err != nil {
		return Summary{}, err
	}

	goalIDs := make(map[string]int64, len(existingGoals))
	for _, g := range existingGoals {
		key := goalKey(g.Title)
		if _, ok := goalIDs[key]; !ok {
			goalIDs[key] = g.ID
		}
	}
	tracker := newDuplicateTracker(existingEntries)

	summary := Summary{TotalRows: totalRows}
	fail := func(row int, goal string, err error) {
		if len(summary.Failed) < MaxFailedRecords {
			summary.Failed = append(summary.Failed, FailedRecord{Row: row, Goal: goal, Error: err.Error()})
		} else {
			summary.TruncatedRecords = true
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	for _, row := range rows {
		sample, rowErr := buildSample(row.values, now)
		if rowErr != nil {
			fail(row.number, row.values[columnGoal], rowErr)
			continue
		}

		if tracker.Check(sample) {
			if len(summary.SkippedDuplicates) < MaxFailedRecords {
				summary.SkippedDuplicates = append(summary.SkippedDuplicates, SkippedRecord{
					Row:    row.number,
					Goal:   sample.goal,
					Reason: "progress entry already recorded",
				})
			} else {
				summary.TruncatedRecords = true
			}
			continue
		}

		goalID, ok := goalIDs[goalKey(sample.goal)]
		if !ok {
			created, err := i.goals.CreateGoal(ctx, ownerID, goals.CreateGoalInput{Title: sample.goal})
			if err != nil {
				fail(row.number, sample.goal, err)
				continue
			}
			goalID = created.ID
			goalIDs[goalKey(sample.goal)] = goalID
			summary.GoalsCreated++
		}

		loggedAt := sample.loggedAt
		if _, err := i.goals.LogProgress(ctx, ownerID, goalID, goals.LogProgressInput{
			Value:    sample.value,
			LoggedAt: &loggedAt,
			Note:     sample.note,
		}); err != nil {
			fail(row.number, sample.goal, err)
			continue
		}

		tracker.Add(sample)
		summary.Imported++
	}

	return summary, nil
}

type sample struct {
	goal     string
	loggedAt time.Time
	value    float64
	note     string
}

func buildSample(values map[string]string, now time.Time) (sample, error) {
	s := sample{
		goal: strings.TrimSpace(values[columnGoal]),
		note: strings.TrimSpace(values[columnNote]),
	}
	if s.goal == "" {
		return sample{}, fmt.Errorf("goal is required")
	}

	if strings.TrimSpace(values[columnValue]) == "" {
		return sample{}, fmt.Errorf("value is required")
	}
	value, err := goals.ParseNumber(values[columnValue], "value")
	if err != nil {
		return sample{}, err
	}
	if value < 0 {
		return sample{}, fmt.Errorf("value must be zero or greater")
	}
	s.value = value

	loggedAt, err := parseOptionalTime(values[columnLoggedAt], "loggedAt")
	if err != nil {
		return sample{}, err
	}
	if loggedAt != nil {
		s.loggedAt = loggedAt.UTC().Truncate(time.Second)
	} else {
		s.loggedAt = now
	}
	return s, nil
}

func normalizeHeader(header []string) (map[int]string, error) {
	columns := make(map[int]string, len(header))
	seen := map[string]bool{}
	for idx, raw := range header {
		cleaned := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff")))
		key, ok := headerAliases[cleaned]
		if !ok {
			continue
		}
		columns[idx] = key
		seen[key] = true
	}

	missing := make([]string, 0)
	for _, column := range requiredColumns {
		if !seen[column] {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required columns: %s", ErrInvalidCSV, strings.Join(missing, ", "))
	}
	return columns, nil
}

func mapRecord(columns map[int]string, record []string) map[string]string {
	values := make(map[string]string, len(columns))
	for idx, column := range columns {
		if idx >= len(record) {
			values[column] = ""
			continue
		}
		values[column] = strings.TrimSpace(record[idx])
	}
	return values
}

func isRowEmpty(values map[string]string) bool {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

// parseOptionalTime accepts RFC3339 timestamps or plain dates.
func parseOptionalTime(value string, field string) (*time.Time, error) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, goals.DateInputLayout} {
		if parsed, err := time.Parse(layout, cleaned); err == nil {
			return &parsed, nil
		}
	}
	return nil, fmt.Errorf("%s must be an RFC3339 timestamp or YYYY-MM-DD date", field)
}

func goalKey(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}

type duplicateTracker struct {
	seen map[string]struct{}
}

func newDuplicateTracker(existing []goals.ProgressEntry) *duplicateTracker {
	t := &duplicateTracker{seen: make(map[string]struct{}, len(existing))}
	for _, e := range existing {
		t.store(e.GoalTitle, e.LoggedAt, e.Value)
	}
	return t
}

func (t *duplicateTracker) key(goal string, at time.Time, value float64) string {
	return fmt.Sprintf("%s|%d|%g", goalKey(goal), at.UTC().Unix(), value)
}

func (t *duplicateTracker) store(goal string, at time.Time, value float64) {
	t.seen[t.key(goal, at, value)] = struct{}{}
}

func (t *duplicateTracker) Check(s sample) bool {
	_, ok := t.seen[t.key(s.goal, s.loggedAt, s.value)]
	return ok
}

func (t *duplicateTracker) Add(s sample) {
	t.store(s.goal, s.loggedAt, s.value)
}
