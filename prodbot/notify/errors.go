package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/disgoorg/disgo/rest"
)

var (
	// ErrTargetGone means the channel, message or user no longer exists.
	ErrTargetGone = errors.New("notification target no longer exists")
	// ErrPermissionDenied means the bot may not act on the target.
	ErrPermissionDenied = errors.New("missing permission for notification target")
)

// DeliveryError is a failure worth retrying on a later pass.
type DeliveryError struct {
	Op  string
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed during %s: %v", e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Classify maps a platform error onto ErrTargetGone, ErrPermissionDenied or
// a *DeliveryError. Errors already classified pass through.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTargetGone) || errors.Is(err, ErrPermissionDenied) {
		return err
	}
	var de *DeliveryError
	if errors.As(err, &de) {
		return err
	}

	var restErr *rest.Error
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, ErrTargetGone)
		case http.StatusForbidden:
			return fmt.Errorf("%s: %w", op, ErrPermissionDenied)
		}
	}

	return &DeliveryError{Op: op, Err: err}
}

func IsTargetGone(err error) bool {
	return errors.Is(err, ErrTargetGone)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsTransient reports whether a later attempt may succeed.
func IsTransient(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) || errors.Is(err, context.DeadlineExceeded)
}
