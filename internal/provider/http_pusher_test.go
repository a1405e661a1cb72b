package provider_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bobibobi02/whistle-connect-sub001/internal/domain"
	"github.com/bobibobi02/whistle-connect-sub001/internal/provider"
)

type receivedChunk struct {
	tokens []string
}

// fakeProvider is an httptest push endpoint. Outcomes are driven by token
// substrings: "dead" → DeviceNotRegistered, "flaky" → a generic per-message
// error, anything else → ok.
type fakeProvider struct {
	mu     sync.Mutex
	chunks []receivedChunk

	// failCall marks which call numbers (1-based) answer with HTTP 500.
	failCall map[int]bool
	// truncate drops one ticket from every response, breaking alignment.
	truncate bool
}

func (f *fakeProvider) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/push/send" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}

		var msgs []struct {
			To    string `json:"to"`
			Sound string `json:"sound"`
			Title string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&msgs); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		tokens := make([]string, len(msgs))
		for i, m := range msgs {
			tokens[i] = m.To
		}
		f.chunks = append(f.chunks, receivedChunk{tokens: tokens})
		callNum := len(f.chunks)
		f.mu.Unlock()

		if f.failCall[callNum] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		type ticket struct {
			Status  string `json:"status"`
			Message string `json:"message,omitempty"`
			Details struct {
				Error string `json:"error,omitempty"`
			} `json:"details,omitempty"`
		}
		tickets := make([]ticket, 0, len(msgs))
		for _, m := range msgs {
			var tk ticket
			switch {
			case strings.Contains(m.To, "dead"):
				tk.Status = "error"
				tk.Message = "device not registered"
				tk.Details.Error = "DeviceNotRegistered"
			case strings.Contains(m.To, "flaky"):
				tk.Status = "error"
				tk.Message = "message rate exceeded"
			default:
				tk.Status = "ok"
			}
			tickets = append(tickets, tk)
		}
		if f.truncate && len(tickets) > 0 {
			tickets = tickets[:len(tickets)-1]
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": tickets})
	}
}

func (f *fakeProvider) chunkSizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	sizes := make([]int, len(f.chunks))
	for i, c := range f.chunks {
		sizes[i] = len(c.tokens)
	}
	return sizes
}

func makeMessages(n int) []domain.DeliveryMessage {
	msgs := make([]domain.DeliveryMessage, n)
	for i := range msgs {
		msgs[i] = domain.DeliveryMessage{
			Token:          fmt.Sprintf("ExponentPushToken[t%03d]", i),
			Title:          "hello",
			Body:           "world",
			NotificationID: fmt.Sprintf("n%03d", i),
		}
	}
	return msgs
}

// serial concurrency makes chunk ordering deterministic for call-count
// assertions; batch behaviour is identical either way.
func newPusher(baseURL string, chunkSize, concurrency int) *provider.HTTPPusher {
	return provider.NewHTTPPusher(baseURL, 2*time.Second, chunkSize, concurrency, 10_000, zap.NewNop())
}

func TestSendBatch_ChunksToProviderCeiling(t *testing.T) {
	fake := &fakeProvider{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	msgs := makeMessages(250)
	receipts := newPusher(srv.URL, 100, 1).SendBatch(context.Background(), msgs)

	sizes := fake.chunkSizes()
	if len(sizes) != 3 || sizes[0] != 100 || sizes[1] != 100 || sizes[2] != 50 {
		t.Fatalf("chunk sizes = %v, want [100 100 50]", sizes)
	}

	if len(receipts) != len(msgs) {
		t.Fatalf("got %d receipts for %d messages", len(receipts), len(msgs))
	}
	for i, rec := range receipts {
		if rec.Outcome != domain.OutcomeDelivered {
			t.Fatalf("receipt %d = %s, want delivered", i, rec.Outcome)
		}
	}
}

func TestSendBatch_SingleCallWhenUnderCeiling(t *testing.T) {
	fake := &fakeProvider{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	newPusher(srv.URL, 100, 4).SendBatch(context.Background(), makeMessages(40))

	if sizes := fake.chunkSizes(); len(sizes) != 1 || sizes[0] != 40 {
		t.Fatalf("chunk sizes = %v, want [40]", sizes)
	}
}

func TestSendBatch_ReceiptsAlignWithInputOrder(t *testing.T) {
	fake := &fakeProvider{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	msgs := []domain.DeliveryMessage{
		{Token: "ExponentPushToken[ok-1]", NotificationID: "n1"},
		{Token: "ExponentPushToken[dead-1]", NotificationID: "n1"},
		{Token: "ExponentPushToken[flaky-1]", NotificationID: "n2"},
		{Token: "ExponentPushToken[ok-2]", NotificationID: "n3"},
	}
	// Chunk size 2 splits the batch; alignment must hold across chunks.
	receipts := newPusher(srv.URL, 2, 2).SendBatch(context.Background(), msgs)

	want := []domain.Outcome{
		domain.OutcomeDelivered,
		domain.OutcomeRejectedPermanent,
		domain.OutcomeRejectedTemporary,
		domain.OutcomeDelivered,
	}
	for i, rec := range receipts {
		if rec.Outcome != want[i] {
			t.Errorf("receipt %d = %s, want %s", i, rec.Outcome, want[i])
		}
	}
}

func TestSendBatch_TransportFailureFailsWholeChunkTemporarily(t *testing.T) {
	fake := &fakeProvider{failCall: map[int]bool{2: true}}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	msgs := makeMessages(30)
	receipts := newPusher(srv.URL, 10, 1).SendBatch(context.Background(), msgs)

	for i, rec := range receipts {
		want := domain.OutcomeDelivered
		if i >= 10 && i < 20 {
			want = domain.OutcomeRejectedTemporary
		}
		if rec.Outcome != want {
			t.Errorf("receipt %d = %s, want %s", i, rec.Outcome, want)
		}
	}
}

func TestSendBatch_MisalignedResponseFailsChunkTemporarily(t *testing.T) {
	fake := &fakeProvider{truncate: true}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	receipts := newPusher(srv.URL, 100, 1).SendBatch(context.Background(), makeMessages(5))

	for i, rec := range receipts {
		if rec.Outcome != domain.OutcomeRejectedTemporary {
			t.Errorf("receipt %d = %s, want rejected_temporary", i, rec.Outcome)
		}
		if rec.Detail == "" {
			t.Errorf("receipt %d has no detail for a transport-level failure", i)
		}
	}
}

func TestSendBatch_TimeoutIsTemporaryNotUnresolved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	p := provider.NewHTTPPusher(srv.URL, 50*time.Millisecond, 100, 1, 10_000, zap.NewNop())
	receipts := p.SendBatch(context.Background(), makeMessages(3))

	if len(receipts) != 3 {
		t.Fatalf("got %d receipts, want 3", len(receipts))
	}
	for i, rec := range receipts {
		if rec.Outcome != domain.OutcomeRejectedTemporary {
			t.Errorf("receipt %d = %s, want rejected_temporary", i, rec.Outcome)
		}
	}
}

func TestSendBatch_EmptyInputMakesNoCalls(t *testing.T) {
	fake := &fakeProvider{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	receipts := newPusher(srv.URL, 100, 4).SendBatch(context.Background(), nil)
	if len(receipts) != 0 {
		t.Fatalf("got %d receipts for empty input", len(receipts))
	}
	if calls := len(fake.chunkSizes()); calls != 0 {
		t.Fatalf("made %d calls for empty input", calls)
	}
}

func TestSendBatch_ChunkSizeDoesNotChangeOutcomes(t *testing.T) {
	msgs := make([]domain.DeliveryMessage, 0, 23)
	for i := 0; i < 23; i++ {
		token := fmt.Sprintf("ExponentPushToken[t%02d]", i)
		switch i % 5 {
		case 0:
			token = fmt.Sprintf("ExponentPushToken[dead%02d]", i)
		case 3:
			token = fmt.Sprintf("ExponentPushToken[flaky%02d]", i)
		}
		msgs = append(msgs, domain.DeliveryMessage{Token: token})
	}

	outcomes := func(chunkSize int) []domain.Outcome {
		fake := &fakeProvider{}
		srv := httptest.NewServer(fake.handler(t))
		defer srv.Close()

		receipts := newPusher(srv.URL, chunkSize, 3).SendBatch(context.Background(), msgs)
		result := make([]domain.Outcome, len(receipts))
		for i, rec := range receipts {
			result[i] = rec.Outcome
		}
		return result
	}

	oneCall := outcomes(len(msgs))
	for _, chunkSize := range []int{1, 4, 10} {
		chunked := outcomes(chunkSize)
		for i := range oneCall {
			if chunked[i] != oneCall[i] {
				t.Fatalf("chunk size %d: receipt %d = %s, single call gave %s",
					chunkSize, i, chunked[i], oneCall[i])
			}
		}
	}
}

func TestIsProviderToken(t *testing.T) {
	tests := []struct {
		token string
		valid bool
	}{
		{"ExponentPushToken[abc123]", true},
		{"ExpoPushToken[abc123]", true},
		{"ExponentPushToken[]", false},
		{"ExponentPushToken[abc", false},
		{"fcm:some-other-provider", false},
		{"", false},
		{"abc123", false},
	}
	for _, tc := range tests {
		if got := provider.IsProviderToken(tc.token); got != tc.valid {
			t.Errorf("IsProviderToken(%q) = %v, want %v", tc.token, got, tc.valid)
		}
	}
}
