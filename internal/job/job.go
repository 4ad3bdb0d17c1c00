package job

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is one request to fetch a symbol's prices for a date range into the
// archive. A completed job may still carry Error when some fetch units
// failed; FailedUnits counts them.
type Job struct {
	ID           int64     `json:"id"`
	Symbol       string    `json:"symbol"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	Status       Status    `json:"status"`
	Error        string    `json:"error,omitempty"`
	RecordsCount int64     `json:"recordsCount"`
	FailedUnits  int       `json:"failedUnits"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
