package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bobibobi02/whistle-connect-sub001/internal/domain"
	"github.com/bobibobi02/whistle-connect-sub001/internal/provider"
	"github.com/bobibobi02/whistle-connect-sub001/internal/repository"
)

// Hooks carries the metric callback functions injected by main.
// Using a struct keeps the Processor constructor signature clean.
type Hooks struct {
	OnRun     func(summary domain.RunSummary, elapsed time.Duration)
	OnBacklog func(pending int)
}

// Processor executes one delivery run: claim a batch of pending
// notifications, fan them out to device tokens, deliver through the push
// provider, commit terminal statuses, retire dead tokens, and sweep expired
// rows.
//
// Failed notifications are terminal: this subsystem performs no retry or
// backoff. Recovery from transient provider trouble is the cadence of
// scheduled runs picking up whatever upstream enqueues next.
//
// Runs are safe to overlap across processes because the claim is a single
// conditional state transition; two racing runs partition the pending set
// rather than double-delivering any row.
type Processor struct {
	queue        repository.QueueRepository
	tokens       repository.TokenRepository
	pusher       provider.Pusher
	batchSize    int
	claimTimeout time.Duration
	retention    time.Duration
	logger       *zap.Logger
	hooks        Hooks
}

// New constructs a Processor. Hook functions are optional (nil = no-op).
func New(
	queue repository.QueueRepository,
	tokens repository.TokenRepository,
	pusher provider.Pusher,
	batchSize int,
	claimTimeout time.Duration,
	retention time.Duration,
	logger *zap.Logger,
	hooks Hooks,
) *Processor {
	if hooks.OnRun == nil {
		hooks.OnRun = func(domain.RunSummary, time.Duration) {}
	}
	if hooks.OnBacklog == nil {
		hooks.OnBacklog = func(int) {}
	}
	return &Processor{
		queue:        queue,
		tokens:       tokens,
		pusher:       pusher,
		batchSize:    batchSize,
		claimTimeout: claimTimeout,
		retention:    retention,
		logger:       logger,
		hooks:        hooks,
	}
}

// Run executes one full pipeline pass. batchSize <= 0 uses the configured
// default. The returned error is reserved for queue/token store failures;
// delivery problems are absorbed into the summary as failed notifications.
// The retention sweep runs on every invocation, including runs that claim
// nothing.
func (p *Processor) Run(ctx context.Context, batchSize int) (domain.RunSummary, error) {
	if batchSize <= 0 {
		batchSize = p.batchSize
	}
	start := time.Now()
	log := p.logger.With(zap.String("run_id", uuid.New().String()))

	claimed, err := p.queue.ClaimBatch(ctx, batchSize, p.claimTimeout)
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("claim batch: %w", err)
	}

	summary := domain.RunSummary{Processed: len(claimed)}

	if len(claimed) == 0 {
		log.Debug("no pending notifications")
		if err := p.sweep(ctx, log); err != nil {
			return summary, err
		}
		p.finish(ctx, log, &summary, start)
		return summary, nil
	}

	tokensByRecipient, err := p.resolveTokens(ctx, claimed)
	if err != nil {
		return summary, fmt.Errorf("resolve tokens: %w", err)
	}

	vacuousIDs, messages := compile(claimed, tokensByRecipient)

	// Notifications with no resolvable device are vacuously complete; no
	// provider call is made for them.
	var receipts []provider.Receipt
	if len(messages) > 0 {
		receipts = p.pusher.SendBatch(ctx, messages)
	}

	rec := reconcile(messages, receipts)
	sentIDs := append(vacuousIDs, rec.sentIDs...)

	now := time.Now().UTC()
	if err := p.queue.MarkSent(ctx, sentIDs, now); err != nil {
		return summary, fmt.Errorf("mark sent: %w", err)
	}
	if err := p.queue.MarkFailed(ctx, rec.failedIDs, now); err != nil {
		return summary, fmt.Errorf("mark failed: %w", err)
	}
	summary.Sent = len(sentIDs)
	summary.Failed = len(rec.failedIDs)

	if len(rec.invalidTokens) > 0 {
		removed, err := p.tokens.DeleteByValues(ctx, rec.invalidTokens)
		if err != nil {
			return summary, fmt.Errorf("delete invalid tokens: %w", err)
		}
		summary.InvalidTokensRemoved = int(removed)
		log.Info("retired dead device tokens", zap.Int64("count", removed))
	}

	if err := p.sweep(ctx, log); err != nil {
		return summary, err
	}

	p.finish(ctx, log, &summary, start)
	return summary, nil
}

// resolveTokens bulk-fetches tokens for the distinct recipients of the batch
// and drops values whose shape the provider would reject outright.
func (p *Processor) resolveTokens(ctx context.Context, claimed []*domain.QueuedNotification) (map[string][]domain.DeviceToken, error) {
	seen := make(map[string]bool, len(claimed))
	recipients := make([]string, 0, len(claimed))
	for _, n := range claimed {
		if !seen[n.RecipientID] {
			seen[n.RecipientID] = true
			recipients = append(recipients, n.RecipientID)
		}
	}

	all, err := p.tokens.ListByRecipients(ctx, recipients)
	if err != nil {
		return nil, err
	}

	filtered := make(map[string][]domain.DeviceToken, len(all))
	for recipient, tokens := range all {
		for _, t := range tokens {
			if provider.IsProviderToken(t.Token) {
				filtered[recipient] = append(filtered[recipient], t)
			}
		}
	}
	return filtered, nil
}

// sweep deletes terminal rows older than the retention window. Stale pending
// rows are deliberately left alone — only a producer decision or manual
// intervention may discard undelivered work — so the count is surfaced for
// operators instead.
func (p *Processor) sweep(ctx context.Context, log *zap.Logger) error {
	cutoff := time.Now().UTC().Add(-p.retention)

	deleted, err := p.queue.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("retention sweep: %w", err)
	}
	if deleted > 0 {
		log.Info("retention sweep removed rows", zap.Int64("count", deleted))
	}

	if stale, err := p.queue.CountStalePending(ctx, cutoff); err == nil && stale > 0 {
		log.Warn("pending rows older than retention window",
			zap.Int("count", stale))
	}
	return nil
}

func (p *Processor) finish(ctx context.Context, log *zap.Logger, summary *domain.RunSummary, start time.Time) {
	elapsed := time.Since(start)
	log.Info("delivery run complete",
		zap.Int("processed", summary.Processed),
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
		zap.Int("invalid_tokens_removed", summary.InvalidTokensRemoved),
		zap.Duration("elapsed", elapsed),
	)
	p.hooks.OnRun(*summary, elapsed)

	if pending, err := p.queue.CountPending(ctx); err == nil {
		p.hooks.OnBacklog(pending)
	}
}

// compile fans each claimed notification out to one DeliveryMessage per
// resolved token. Notifications with zero tokens land in vacuousIDs: there is
// nothing to deliver, which counts as complete, not as failure. (A separate
// "skipped" terminal status would disambiguate the two in reporting; "sent"
// is kept for compatibility with the rest of the platform's expectations.)
func compile(claimed []*domain.QueuedNotification, tokens map[string][]domain.DeviceToken) (vacuousIDs []string, msgs []domain.DeliveryMessage) {
	for _, n := range claimed {
		owned := tokens[n.RecipientID]
		if len(owned) == 0 {
			vacuousIDs = append(vacuousIDs, n.ID)
			continue
		}
		for _, t := range owned {
			msgs = append(msgs, domain.DeliveryMessage{
				Token:          t.Token,
				Title:          n.Title,
				Body:           n.Body,
				Data:           n.Data,
				NotificationID: n.ID,
			})
		}
	}
	return vacuousIDs, msgs
}

type reconciliation struct {
	sentIDs       []string
	failedIDs     []string
	invalidTokens []string
}

// reconcile maps positionally aligned receipts back to their originating
// notifications. One delivered device is enough to mark a notification sent;
// a multi-device recipient is not failed just because one install rejected
// the message. Permanently rejected tokens are collected globally regardless
// of which notification surfaced them.
func reconcile(msgs []domain.DeliveryMessage, receipts []provider.Receipt) reconciliation {
	delivered := make(map[string]bool)
	order := make([]string, 0, len(msgs))
	seen := make(map[string]bool)
	deadTokens := make(map[string]bool)

	var rec reconciliation
	for i, m := range msgs {
		if !seen[m.NotificationID] {
			seen[m.NotificationID] = true
			order = append(order, m.NotificationID)
		}
		switch receipts[i].Outcome {
		case domain.OutcomeDelivered:
			delivered[m.NotificationID] = true
		case domain.OutcomeRejectedPermanent:
			if !deadTokens[m.Token] {
				deadTokens[m.Token] = true
				rec.invalidTokens = append(rec.invalidTokens, m.Token)
			}
		}
	}

	for _, id := range order {
		if delivered[id] {
			rec.sentIDs = append(rec.sentIDs, id)
		} else {
			rec.failedIDs = append(rec.failedIDs, id)
		}
	}
	return rec
}
