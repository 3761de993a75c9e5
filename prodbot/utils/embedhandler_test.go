package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/disgoorg/productivity-bot/prodbot/database/repositories"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	storeErr := &repositories.StoreError{Operation: "get", Entity: "reminder", Err: errors.New("connection refused")}

	tests := []struct {
		name     string
		err      error
		wantType ErrorType
		wantMsg  string
	}{
		{
			name:     "validation",
			err:      &repositories.ValidationError{Message: "Message cannot be empty."},
			wantType: UserError,
			wantMsg:  "Message cannot be empty.",
		},
		{
			name:     "not found",
			err:      &repositories.NotFoundError{Entity: "poll", ID: 7},
			wantType: NotFoundError,
			wantMsg:  "poll with ID 7 not found",
		},
		{
			name:     "closed poll",
			err:      fmt.Errorf("vote: %w", repositories.ErrPollClosed),
			wantType: BusinessLogicError,
			wantMsg:  "vote: poll is closed",
		},
		{
			name:     "store failure",
			err:      fmt.Errorf("list reminders: %w", storeErr),
			wantType: SystemError,
			wantMsg:  "The database is unavailable right now, please try again later.",
		},
		{
			name:     "anything else",
			err:      errors.New("gateway closed"),
			wantType: SystemError,
			wantMsg:  "Something went wrong, please try again later.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotMsg := ErrorMessage(tt.err)
			assert.Equal(t, tt.wantType, gotType)
			assert.Equal(t, tt.wantMsg, gotMsg)
			assert.Equal(t, repositories.IsStore(tt.err), tt.name == "store failure")
		})
	}
}
