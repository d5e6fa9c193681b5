package domain

// ScheduleStatusDefault is assigned when an upsert inserts a record without
// an explicit status.
const ScheduleStatusDefault = "pending"

// ScheduledTask is a calendar entry. CronJobID is the natural key for entries
// produced by cron imports; entries without one are ad hoc and always insert
// as new rows. ScheduledAt and EndAt are Unix milliseconds.
type ScheduledTask struct {
	ID          string         `json:"id"`
	CronJobID   string         `json:"cronJobId,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	ScheduledAt int64          `json:"scheduledAt"`
	EndAt       int64          `json:"endAt,omitempty"`
	Recurrence  string         `json:"recurrence,omitempty"`
	Status      string         `json:"status,omitempty"`
	AssignedTo  string         `json:"assignedTo"`
	Project     string         `json:"project,omitempty"`
	Source      string         `json:"source"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func (t ScheduledTask) Validate() error {
	if t.Title == "" {
		return ValidationError{Field: "title", Reason: "required"}
	}
	if t.ScheduledAt <= 0 {
		return ValidationError{Field: "scheduledAt", Reason: "must be a positive unix-ms timestamp"}
	}
	if t.AssignedTo == "" {
		return ValidationError{Field: "assignedTo", Reason: "required"}
	}
	if t.Source == "" {
		return ValidationError{Field: "source", Reason: "required"}
	}
	return nil
}
