package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/bobibobi02/whistle-connect-sub001/internal/domain"
)

// DeviceNotRegistered is the provider's error code for a permanently dead
// token. Any other per-message error is treated as temporary.
const DeviceNotRegistered = "DeviceNotRegistered"

// pushTicket mirrors one element of the provider's response array, aligned
// by position with the request array.
type pushTicket struct {
	Status  string `json:"status"` // "ok" | "error"
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"`
	} `json:"details,omitempty"`
}

type pushResponse struct {
	Data []pushTicket `json:"data"`
}

// pushMessage is the JSON body element posted to the provider.
type pushMessage struct {
	To    string            `json:"to"`
	Sound string            `json:"sound"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// HTTPPusher delivers messages to an Expo-compatible push endpoint.
// It partitions the input into chunks no larger than the provider's ceiling,
// issues the chunk calls with bounded concurrency, and paces them with a
// client-side rate limiter. The base URL is injected from config so tests
// can point at a local httptest server.
type HTTPPusher struct {
	baseURL     string
	httpClient  *http.Client
	chunkSize   int
	concurrency int
	limiter     *rate.Limiter
	logger      *zap.Logger
}

func NewHTTPPusher(baseURL string, timeout time.Duration, chunkSize, concurrency, callsPerSec int, logger *zap.Logger) *HTTPPusher {
	if chunkSize < 1 {
		chunkSize = 1
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &HTTPPusher{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: timeout},
		chunkSize:   chunkSize,
		concurrency: concurrency,
		limiter:     rate.NewLimiter(rate.Limit(callsPerSec), callsPerSec),
		logger:      logger,
	}
}

// SendBatch delivers all messages and returns one receipt per message, in
// input order. It never returns early: every chunk is attempted, and a chunk
// whose call fails at the transport level yields rejected-temporary receipts
// for all of its messages instead of an error.
func (p *HTTPPusher) SendBatch(ctx context.Context, msgs []domain.DeliveryMessage) []Receipt {
	receipts := make([]Receipt, len(msgs))
	if len(msgs) == 0 {
		return receipts
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for lo := 0; lo < len(msgs); lo += p.chunkSize {
		hi := lo + p.chunkSize
		if hi > len(msgs) {
			hi = len(msgs)
		}
		chunk := msgs[lo:hi]
		out := receipts[lo:hi]

		g.Go(func() error {
			p.sendChunk(gctx, chunk, out)
			return nil // chunk failures are data, never group errors
		})
	}
	_ = g.Wait()

	return receipts
}

// sendChunk performs one provider call and fills out with one receipt per
// message. out and chunk are the same length by construction.
func (p *HTTPPusher) sendChunk(ctx context.Context, chunk []domain.DeliveryMessage, out []Receipt) {
	if err := p.limiter.Wait(ctx); err != nil {
		p.failChunk(out, fmt.Sprintf("rate limiter: %v", err))
		return
	}

	tickets, err := p.post(ctx, chunk)
	if err != nil {
		p.logger.Warn("push chunk call failed",
			zap.Int("chunk_size", len(chunk)),
			zap.Error(err),
		)
		p.failChunk(out, err.Error())
		return
	}

	for i, t := range tickets {
		out[i] = classify(t)
	}
}

func (p *HTTPPusher) post(ctx context.Context, chunk []domain.DeliveryMessage) ([]pushTicket, error) {
	payload := make([]pushMessage, len(chunk))
	for i, m := range chunk {
		payload[i] = pushMessage{
			To:    m.Token,
			Sound: "default",
			Title: m.Title,
			Body:  m.Body,
			Data:  m.Data,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/push/send", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected provider status: %d", resp.StatusCode)
	}

	var parsed pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// The contract is positional alignment; a length mismatch means the
	// response cannot be attributed to individual messages.
	if len(parsed.Data) != len(chunk) {
		return nil, fmt.Errorf("misaligned response: sent %d messages, got %d tickets", len(chunk), len(parsed.Data))
	}

	return parsed.Data, nil
}

func (p *HTTPPusher) failChunk(out []Receipt, detail string) {
	for i := range out {
		out[i] = Receipt{Outcome: domain.OutcomeRejectedTemporary, Detail: detail}
	}
}

func classify(t pushTicket) Receipt {
	switch {
	case t.Status == "ok":
		return Receipt{Outcome: domain.OutcomeDelivered}
	case t.Details.Error == DeviceNotRegistered:
		return Receipt{Outcome: domain.OutcomeRejectedPermanent, Detail: t.Message}
	default:
		return Receipt{Outcome: domain.OutcomeRejectedTemporary, Detail: t.Message}
	}
}

// compile-time check that HTTPPusher implements Pusher
var _ Pusher = (*HTTPPusher)(nil)
