package domain

import "time"

// Status tracks the lifecycle of a queued notification.
//
// pending rows are owned by upstream producers; everything after the
// pending→claimed transition is owned exclusively by the delivery processor.
type Status string

const (
	StatusPending Status = "pending"
	StatusClaimed Status = "claimed"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusClaimed, StatusSent, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status is an end state.
// ProcessedAt is non-nil iff Terminal() is true.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}

// QueuedNotification is one unit of delivery work: tell one recipient about
// one event. Data is an opaque string map forwarded untouched to the push
// provider; clients use it for deep-linking and this subsystem never
// inspects it.
type QueuedNotification struct {
	ID          string            `json:"id"`
	RecipientID string            `json:"recipient_id"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	Status      Status            `json:"status"`
	EnqueuedAt  time.Time         `json:"created_at"`
	ClaimedAt   *time.Time        `json:"claimed_at,omitempty"`
	ProcessedAt *time.Time        `json:"processed_at,omitempty"`
}

// DeviceToken addresses one app installation of a recipient via the push
// provider. A recipient may own any number of tokens; a token the provider
// reports as permanently dead is deleted and never targeted again.
type DeviceToken struct {
	RecipientID string    `json:"recipient_id"`
	Token       string    `json:"token"`
	CreatedAt   time.Time `json:"created_at"`
}

// DeliveryMessage is the per-device fan-out of a notification: one message
// per (notification, token) pair. It exists only for the duration of a run.
type DeliveryMessage struct {
	Token          string
	Title          string
	Body           string
	Data           map[string]string
	NotificationID string
}

// Outcome is the provider-reported result for a single delivery message.
type Outcome string

const (
	OutcomeDelivered         Outcome = "delivered"
	OutcomeRejectedTemporary Outcome = "rejected_temporary"
	OutcomeRejectedPermanent Outcome = "rejected_permanent"
)

// RunSummary is the operational result of one processor invocation.
type RunSummary struct {
	Processed            int `json:"processed"`
	Sent                 int `json:"sent"`
	Failed               int `json:"failed"`
	InvalidTokensRemoved int `json:"invalid_tokens_removed"`
}

// EnqueueRequest is the inbound payload on the producer write surface.
// Upstream decides *that* a notification should go out; this subsystem only
// accepts the already-decided row.
type EnqueueRequest struct {
	RecipientID string            `json:"recipient_id"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
}

func (r *EnqueueRequest) Validate() error {
	if r.RecipientID == "" {
		return ErrInvalidRecipient
	}
	if r.Title == "" || len(r.Title) > 256 {
		return ErrInvalidTitle
	}
	if r.Body == "" || len(r.Body) > 4096 {
		return ErrInvalidBody
	}
	return nil
}
