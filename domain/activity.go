package domain

// ActivityEvent is a write-only record of something that happened. Events are
// appended after primary mutations succeed and never gate them.
type ActivityEvent struct {
	Timestamp   int64          `json:"timestamp"`
	Actor       string         `json:"actor"`
	Action      string         `json:"action"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Project     string         `json:"project,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}
