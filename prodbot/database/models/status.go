package models

// Status is the lifecycle state shared by every due-item family.
// Active is the only non-terminal state; nothing moves an item back to it.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusOrphaned  Status = "orphaned"
)

func (s Status) Terminal() bool {
	return s != StatusActive
}

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled, StatusOrphaned:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}
