package provider

import (
	"context"
	"strings"

	"github.com/bobibobi02/whistle-connect-sub001/internal/domain"
)

// Receipt is the per-message result of a delivery attempt. A transport-level
// failure (timeout, 5xx, malformed response) surfaces here as
// OutcomeRejectedTemporary on every message of the affected chunk — the
// pusher never reports delivery problems as Go errors, so callers only ever
// consume data.
type Receipt struct {
	Outcome domain.Outcome
	// Detail carries the provider's error message or the transport error
	// text. Empty for delivered messages.
	Detail string
}

// Pusher abstracts batch delivery to the external push provider.
// The returned slice is positionally aligned with msgs: len(receipts) ==
// len(msgs), receipt i belongs to message i.
//
// Mocking this interface in tests gives full control over provider behaviour
// without making real HTTP calls.
type Pusher interface {
	SendBatch(ctx context.Context, msgs []domain.DeliveryMessage) []Receipt
}

// IsProviderToken reports whether a stored token value has the shape this
// provider accepts (Expo-style "ExponentPushToken[...]"). Tokens registered
// for other providers or corrupted values are silently skipped during
// resolution rather than burned in a doomed provider call.
func IsProviderToken(token string) bool {
	if strings.HasPrefix(token, "ExponentPushToken[") && strings.HasSuffix(token, "]") {
		return len(token) > len("ExponentPushToken[")+1
	}
	if strings.HasPrefix(token, "ExpoPushToken[") && strings.HasSuffix(token, "]") {
		return len(token) > len("ExpoPushToken[")+1
	}
	return false
}
