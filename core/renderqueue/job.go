package renderqueue

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks the lifecycle state of a render job through the queue.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusDead       Status = "dead"
)

// Job is a queued render. It carries everything a worker needs to run the
// render except the provider credential: SessionToken references an
// ephemeral secret session, so the secret itself never touches the queue
// or its storage.
type Job struct {
	ID           uuid.UUID  `json:"id"`
	Provider     string     `json:"provider"`
	Prompt       string     `json:"prompt"`
	Model        string     `json:"model,omitempty"`
	AspectRatio  string     `json:"aspect_ratio,omitempty"`
	DurationSec  int        `json:"duration_sec,omitempty"`
	SessionToken string     `json:"session_token"`
	ProjectID    string     `json:"project_id,omitempty"`
	Status       Status     `json:"status"`
	Attempts     int        `json:"attempts"`
	MaxAttempts  int        `json:"max_attempts"`
	OutputKey    string     `json:"output_key,omitempty"`
	OutputURL    string     `json:"output_url,omitempty"`
	Error        *string    `json:"error,omitempty"`
	ScheduledAt  time.Time  `json:"scheduled_at"`
	LockedUntil  *time.Time `json:"locked_until,omitempty"`
	LockedBy     *uuid.UUID `json:"locked_by,omitempty"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Result carries what a successful render produced. The worker records it
// on the job when marking it completed.
type Result struct {
	// OutputKey is the artifact storage key of the finished video.
	OutputKey string
	// OutputURL is the public URL of the finished video.
	OutputURL string
}

// QueueStats reports job counts per status plus sweeper observability,
// for monitoring and health endpoints.
type QueueStats struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Dead       int

	// ExpiredLocksFreed counts processing jobs returned to pending after
	// their worker lock lapsed.
	ExpiredLocksFreed int64
	// SweeperRunning reports whether the lock-expiry sweeper is active.
	SweeperRunning bool
}
