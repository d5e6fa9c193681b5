package domain

// BacklogTask is a record imported from the workforce backlog file. TaskID is
// the natural key; at most one record exists per TaskID, and records are only
// ever written through the sync path.
type BacklogTask struct {
	TaskID      string `json:"taskId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AssignedTo  string `json:"assignedTo"`
	Status      string `json:"status"`
	Priority    string `json:"priority,omitempty"`
	CreatedBy   string `json:"createdBy,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	CompletedAt string `json:"completedAt,omitempty"`
	Output      string `json:"output,omitempty"`
	PR          string `json:"pr,omitempty"`
}

func (t BacklogTask) Validate() error {
	if t.TaskID == "" {
		return ValidationError{Field: "taskId", Reason: "required"}
	}
	if t.Title == "" {
		return ValidationError{Field: "title", Reason: "required"}
	}
	if t.AssignedTo == "" {
		return ValidationError{Field: "assignedTo", Reason: "required"}
	}
	if t.Status == "" {
		return ValidationError{Field: "status", Reason: "required"}
	}
	return nil
}
