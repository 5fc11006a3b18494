package goals

import (
	"context"
	"time"
)

const (
	// NoRecordsLabel is shown as the last update when nothing was logged yet.
	NoRecordsLabel = "Sem registros"
	// DisplayDateLayout formats dates for the dashboard.
	DisplayDateLayout = "02/01/2006"
)

// Overview summarizes an owner's year for the dashboard.
type Overview struct {
	ActiveGoals int      `json:"activeGoals"`
	Completion  int      `json:"completion"`
	LastUpdate  string   `json:"lastUpdate"`
	Series      []Series `json:"series"`
}

// Series is the progress history of one goal.
type Series struct {
	GoalID int64   `json:"goalId"`
	Title  string  `json:"title"`
	Points []Point `json:"points"`
}

// Point is one sample in a Series.
type Point struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
}

// Overview loads the owner's goals and progress and summarizes them.
func (s *Service) Overview(ctx context.Context, ownerID int64) (Overview, error) {
	goals, err := s.repo.ListGoals(ctx, ownerID)
	if err != nil {
		return Overview{}, err
	}
	entries, err := s.repo.ListProgressForOwner(ctx, ownerID)
	if err != nil {
		return Overview{}, err
	}
	return BuildOverview(goals, entries), nil
}

// BuildOverview computes the dashboard figures. Completion is the sum of
// current values over the sum of targets, truncated to a whole percentage.
// Entries are expected in chronological order.
func BuildOverview(goals []Goal, entries []ProgressEntry) Overview {
	overview := Overview{
		ActiveGoals: len(goals),
		LastUpdate:  NoRecordsLabel,
		Series:      make([]Series, 0),
	}

	var totalTarget, totalCurrent float64
	for _, g := range goals {
		totalTarget += g.TargetValue
		totalCurrent += g.CurrentValue
	}
	if totalTarget != 0 {
		overview.Completion = int(totalCurrent / totalTarget * 100)
	}

	var latest time.Time
	index := make(map[int64]int)
	for _, e := range entries {
		if e.LoggedAt.After(latest) {
			latest = e.LoggedAt
		}
		i, ok := index[e.GoalID]
		if !ok {
			i = len(overview.Series)
			index[e.GoalID] = i
			overview.Series = append(overview.Series, Series{GoalID: e.GoalID, Title: e.GoalTitle})
		}
		overview.Series[i].Points = append(overview.Series[i].Points, Point{At: e.LoggedAt, Value: e.Value})
	}
	if !latest.IsZero() {
		overview.LastUpdate = latest.Format(DisplayDateLayout)
	}

	return overview
}
