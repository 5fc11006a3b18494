package goals

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DateInputLayout is the value format of HTML date inputs.
const DateInputLayout = "2006-01-02"

// GoalForm is the editable representation of a goal. Every field has a
// declared default, so the form never depends on a prior record existing.
type GoalForm struct {
	Title        string
	Description  string
	TargetMetric string
	Unit         string
	TargetValue  float64
	CurrentValue float64
	Category     string
	StartDate    time.Time
	EndDate      time.Time
}

// DefaultGoalForm returns an empty form starting today and ending on
// December 31 of the current year.
func DefaultGoalForm(now time.Time) GoalForm {
	return GoalForm{
		StartDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

// GoalFormFrom pre-populates a form from goal, keeping defaults for unset dates.
func GoalFormFrom(goal Goal, now time.Time) GoalForm {
	form := DefaultGoalForm(now)
	form.Title = goal.Title
	form.Description = goal.Description
	form.TargetMetric = goal.TargetMetric
	form.Unit = goal.Unit
	form.TargetValue = goal.TargetValue
	form.CurrentValue = goal.CurrentValue
	form.Category = goal.Category
	if goal.StartDate != nil {
		form.StartDate = *goal.StartDate
	}
	if goal.EndDate != nil {
		form.EndDate = *goal.EndDate
	}
	return form
}

// ParseGoalForm reads submitted values over the defaults. Numbers accept a
// decimal comma; malformed numbers or dates are validation errors.
func ParseGoalForm(values url.Values, now time.Time) (GoalForm, error) {
	form := DefaultGoalForm(now)
	form.Title = values.Get("title")
	form.Description = values.Get("description")
	form.TargetMetric = values.Get("target_metric")
	form.Unit = values.Get("unit")
	form.Category = values.Get("category")

	var err error
	if form.TargetValue, err = ParseNumber(values.Get("target_value"), "target value"); err != nil {
		return GoalForm{}, err
	}
	if form.CurrentValue, err = ParseNumber(values.Get("current_value"), "current value"); err != nil {
		return GoalForm{}, err
	}
	if form.StartDate, err = ParseDate(values.Get("start_date"), form.StartDate, "start date"); err != nil {
		return GoalForm{}, err
	}
	if form.EndDate, err = ParseDate(values.Get("end_date"), form.EndDate, "end date"); err != nil {
		return GoalForm{}, err
	}
	return form, nil
}

// CreateInput converts the form into service input.
func (f GoalForm) CreateInput() CreateGoalInput {
	start, end := f.StartDate, f.EndDate
	return CreateGoalInput{
		Title:        f.Title,
		Description:  f.Description,
		TargetMetric: f.TargetMetric,
		TargetValue:  f.TargetValue,
		CurrentValue: f.CurrentValue,
		Unit:         f.Unit,
		Category:     f.Category,
		StartDate:    &start,
		EndDate:      &end,
	}
}

// UpdateInput converts the form into a full update.
func (f GoalForm) UpdateInput() UpdateGoalInput {
	in := f.CreateInput()
	return UpdateGoalInput{
		Title:        &in.Title,
		Description:  &in.Description,
		TargetMetric: &in.TargetMetric,
		TargetValue:  &in.TargetValue,
		CurrentValue: &in.CurrentValue,
		Unit:         &in.Unit,
		Category:     &in.Category,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
	}
}

// StartDateValue formats the start date for a date input.
func (f GoalForm) StartDateValue() string {
	return f.StartDate.Format(DateInputLayout)
}

// EndDateValue formats the end date for a date input.
func (f GoalForm) EndDateValue() string {
	return f.EndDate.Format(DateInputLayout)
}

// ParseNumber parses a form number, accepting a decimal comma. Empty is zero.
func ParseNumber(raw, field string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil {
		return 0, validationErr(field + " must be a number")
	}
	return value, nil
}

// ParseDate parses a date input value, returning fallback when empty.
func ParseDate(raw string, fallback time.Time, field string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	value, err := time.Parse(DateInputLayout, raw)
	if err != nil {
		return time.Time{}, validationErr(field + " must be a date (YYYY-MM-DD)")
	}
	return value, nil
}
