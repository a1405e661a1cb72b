package domain_test

import (
	"strings"
	"testing"

	"github.com/bobibobi02/whistle-connect-sub001/internal/domain"
)

func TestEnqueueRequest_Validate(t *testing.T) {
	valid := domain.EnqueueRequest{
		RecipientID: "user-42",
		Title:       "New comment on your post",
		Body:        "someone replied to you",
		Data:        map[string]string{"url": "/posts/9000"},
	}

	t.Run("valid request passes", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty recipient", func(t *testing.T) {
		r := valid
		r.RecipientID = ""
		if err := r.Validate(); err != domain.ErrInvalidRecipient {
			t.Fatalf("expected ErrInvalidRecipient, got %v", err)
		}
	})

	t.Run("empty title", func(t *testing.T) {
		r := valid
		r.Title = ""
		if err := r.Validate(); err != domain.ErrInvalidTitle {
			t.Fatalf("expected ErrInvalidTitle, got %v", err)
		}
	})

	t.Run("title too long", func(t *testing.T) {
		r := valid
		r.Title = strings.Repeat("x", 257)
		if err := r.Validate(); err != domain.ErrInvalidTitle {
			t.Fatalf("expected ErrInvalidTitle, got %v", err)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		r := valid
		r.Body = ""
		if err := r.Validate(); err != domain.ErrInvalidBody {
			t.Fatalf("expected ErrInvalidBody, got %v", err)
		}
	})

	t.Run("body too long", func(t *testing.T) {
		r := valid
		r.Body = strings.Repeat("x", 4097)
		if err := r.Validate(); err != domain.ErrInvalidBody {
			t.Fatalf("expected ErrInvalidBody, got %v", err)
		}
	})

	t.Run("body at max length passes", func(t *testing.T) {
		r := valid
		r.Body = strings.Repeat("x", 4096)
		if err := r.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("nil data passes", func(t *testing.T) {
		r := valid
		r.Data = nil
		if err := r.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   domain.Status
		terminal bool
	}{
		{domain.StatusPending, false},
		{domain.StatusClaimed, false},
		{domain.StatusSent, true},
		{domain.StatusFailed, true},
	}
	for _, tc := range tests {
		if got := tc.status.Terminal(); got != tc.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", tc.status, got, tc.terminal)
		}
	}
}
