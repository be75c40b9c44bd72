package event

import (
	"time"
)

// Status is the moderation state of an event
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// VisibleStatuses are the statuses an event list may contain
var VisibleStatuses = []Status{StatusApproved, StatusPending}

// DefaultDuration is applied when an event is submitted without an end time
const DefaultDuration = 2 * time.Hour

// Collections and columns of the remote store
const (
	CollectionEvents        = "event_submissions"
	CollectionTrending      = "event_trending"
	CollectionRegistrations = "registrations"

	ColumnID                = "id"
	ColumnTitle             = "title"
	ColumnDescription       = "description"
	ColumnStartTime         = "start_time"
	ColumnEndTime           = "end_time"
	ColumnLocation          = "location"
	ColumnTags              = "tags"
	ColumnStatus            = "status"
	ColumnPosterURL         = "poster_url"
	ColumnCreatedAt         = "created_at"
	ColumnSubreddits        = "subreddits"
	ColumnTime              = "time"
	ColumnEventID           = "event_id"
	ColumnUserID            = "user_id"
	ColumnRegistrationCount = "registration_count"
)

// Row is a backend-shaped record. Rows are loosely typed and are only
// consumed through the normalizer.
type Row map[string]interface{}

// Registration links a user to an event
type Registration struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Submission is a new event proposed by a user
type Submission struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Location    string     `json:"location"`
	Tags        []string   `json:"tags"`
	PosterURL   string     `json:"poster_url"`
	Subreddits  []string   `json:"subreddits"`
}

// FilterKey is the single selected time or category filter
type FilterKey string

const (
	FilterAll      FilterKey = "all"
	FilterToday    FilterKey = "today"
	FilterTomorrow FilterKey = "tomorrow"
	FilterThisWeek FilterKey = "thisWeek"
	FilterNextWeek FilterKey = "nextWeek"
)

// Categories are the fixed category tags a filter key may name
var Categories = []string{
	"academic",
	"sports",
	"music",
	"arts",
	"tech",
	"social",
	"career",
	"food",
	"health",
	"volunteering",
}

// IsTimeKey reports whether k is a relative time key
func (k FilterKey) IsTimeKey() bool {
	switch k {
	case FilterToday, FilterTomorrow, FilterThisWeek, FilterNextWeek:
		return true
	}
	return false
}

// IsCategory reports whether k is one of the fixed category tags
func (k FilterKey) IsCategory() bool {
	for _, c := range Categories {
		if string(k) == c {
			return true
		}
	}
	return false
}

// ParseFilterKey maps user input to a filter key. Unknown values fall back to FilterAll.
func ParseFilterKey(s string) FilterKey {
	k := FilterKey(s)
	if k.IsTimeKey() || k.IsCategory() {
		return k
	}
	return FilterAll
}

// FilterState is the active combination of search text and filter key
type FilterState struct {
	Search string    `json:"search"`
	Key    FilterKey `json:"key"`
}
