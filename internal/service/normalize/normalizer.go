package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"campusevents/internal/domain/event"
)

// Display defaults
const (
	DefaultTitle    = "Untitled Event"
	DefaultLocation = "TBA"
	TimeLayout      = "Mon, Jan 2 · 3:04 PM"
)

// View is a normalized event ready for rendering
type View struct {
	ID                string       `json:"id"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	StartTime         *time.Time   `json:"start_time,omitempty"`
	EndTime           *time.Time   `json:"end_time,omitempty"`
	Time              string       `json:"time"`
	Location          string       `json:"location"`
	Tags              []string     `json:"tags"`
	Category          string       `json:"category,omitempty"`
	Icon              string       `json:"icon"`
	Color             string       `json:"color"`
	Status            event.Status `json:"status"`
	PosterURL         string       `json:"poster_url,omitempty"`
	Subreddits        []string     `json:"subreddits,omitempty"`
	RegistrationCount int          `json:"registration_count"`
	CreatedAt         *time.Time   `json:"created_at,omitempty"`
}

// Normalizer formats rows for one display location
type Normalizer struct {
	loc *time.Location
}

// New creates a normalizer that formats times in loc
func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{loc: loc}
}

// Events normalizes a batch of rows
func (n *Normalizer) Events(rows []event.Row) []View {
	views := make([]View, 0, len(rows))
	for _, r := range rows {
		views = append(views, n.Event(r))
	}
	return views
}

// Event normalizes a single row. It never mutates row and tolerates
// any missing or mistyped field.
func (n *Normalizer) Event(row event.Row) View {
	v := View{
		ID:                ID(row[event.ColumnID]),
		Title:             stringOr(row[event.ColumnTitle], DefaultTitle),
		Description:       stringOr(row[event.ColumnDescription], ""),
		Location:          stringOr(row[event.ColumnLocation], DefaultLocation),
		Tags:              Tags(row[event.ColumnTags]),
		Status:            event.Status(stringOr(row[event.ColumnStatus], string(event.StatusPending))),
		PosterURL:         stringOr(row[event.ColumnPosterURL], ""),
		Subreddits:        stringList(row[event.ColumnSubreddits]),
		RegistrationCount: intOr(row[event.ColumnRegistrationCount], 0),
		StartTime:         parseTime(row[event.ColumnStartTime]),
		EndTime:           parseTime(row[event.ColumnEndTime]),
		CreatedAt:         parseTime(row[event.ColumnCreatedAt]),
	}

	if v.StartTime != nil {
		v.Time = v.StartTime.In(n.loc).Format(TimeLayout)
		if v.EndTime == nil {
			end := v.StartTime.Add(event.DefaultDuration)
			v.EndTime = &end
		}
	} else {
		v.Time = stringOr(row[event.ColumnTime], "")
	}

	if len(v.Tags) > 0 {
		v.Category = v.Tags[0]
	}
	style := StyleFor(v.Category)
	v.Icon = style.Icon
	v.Color = style.Color

	return v
}

// Row renders the view back into backend shape
func (v View) Row() event.Row {
	row := event.Row{
		event.ColumnID:                v.ID,
		event.ColumnTitle:             v.Title,
		event.ColumnDescription:       v.Description,
		event.ColumnTime:              v.Time,
		event.ColumnLocation:          v.Location,
		event.ColumnTags:              append([]string(nil), v.Tags...),
		event.ColumnStatus:            string(v.Status),
		event.ColumnPosterURL:         v.PosterURL,
		event.ColumnRegistrationCount: v.RegistrationCount,
	}
	if v.Subreddits != nil {
		row[event.ColumnSubreddits] = append([]string(nil), v.Subreddits...)
	}
	if v.StartTime != nil {
		row[event.ColumnStartTime] = *v.StartTime
	}
	if v.EndTime != nil {
		row[event.ColumnEndTime] = *v.EndTime
	}
	if v.CreatedAt != nil {
		row[event.ColumnCreatedAt] = *v.CreatedAt
	}
	return row
}

// ID coerces an identifier to a string. Unexpected types yield "".
func ID(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

// Tags lowercases every tag. Non-string tags are stringified, null as "null".
func Tags(v interface{}) []string {
	raw := stringList(v)
	if items, ok := v.([]interface{}); ok && len(items) > 0 {
		raw = make([]string, 0, len(items))
		for _, item := range items {
			if item == nil {
				raw = append(raw, "null")
				continue
			}
			raw = append(raw, fmt.Sprint(item))
		}
	}
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		tags = append(tags, strings.ToLower(t))
	}
	return tags
}

func stringList(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		if len(t) == 0 {
			return nil
		}
		return append([]string(nil), t...)
	case []interface{}:
		if len(t) == 0 {
			return nil
		}
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	}
	return nil
}

func stringOr(v interface{}, def string) string {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func intOr(v interface{}, def int) int {
	switch t := v.(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float64:
		return int(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
	case string:
		if i, err := strconv.Atoi(t); err == nil {
			return i
		}
	}
	return def
}

func parseTime(v interface{}) *time.Time {
	t, ok := event.ParseTime(v)
	if !ok {
		return nil
	}
	return &t
}

// Time parses a backend timestamp value, returning the zero time when absent
func Time(v interface{}) time.Time {
	if t := parseTime(v); t != nil {
		return *t
	}
	return time.Time{}
}
