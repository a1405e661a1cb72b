package service_test

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/bobibobi02/whistle-connect-sub001/internal/domain"
	"github.com/bobibobi02/whistle-connect-sub001/internal/repository"
	"github.com/bobibobi02/whistle-connect-sub001/internal/service"
)

func newService() (*service.EnqueueService, *repository.MockQueueRepository) {
	repo := repository.NewMockQueueRepository()
	svc := service.NewEnqueueService(repo, zap.NewNop())
	return svc, repo
}

var validReq = domain.EnqueueRequest{
	RecipientID: "user-42",
	Title:       "u/someone mentioned you",
	Body:        "in r/golang: \"have you seen this?\"",
	Data:        map[string]string{"url": "/r/golang/comments/abc"},
}

func TestEnqueueService_Enqueue(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()

	n, err := svc.Enqueue(ctx, validReq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ID == "" {
		t.Fatal("expected a non-empty ID")
	}
	if n.Status != domain.StatusPending {
		t.Fatalf("expected status=pending, got %s", n.Status)
	}
	if n.ProcessedAt != nil {
		t.Fatal("expected nil processed_at on a pending row")
	}

	stored := repo.Snapshot(n.ID)
	if stored == nil {
		t.Fatal("row was not persisted")
	}
	if stored.Data["url"] != validReq.Data["url"] {
		t.Fatalf("payload not passed through: %v", stored.Data)
	}
}

func TestEnqueueService_Enqueue_InvalidRequest(t *testing.T) {
	svc, repo := newService()

	bad := validReq
	bad.RecipientID = ""
	if _, err := svc.Enqueue(context.Background(), bad); err != domain.ErrInvalidRecipient {
		t.Fatalf("expected ErrInvalidRecipient, got %v", err)
	}
	if repo.Len() != 0 {
		t.Fatal("invalid request must not persist a row")
	}
}

func TestEnqueueService_GetByID(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	n, err := svc.Enqueue(ctx, validReq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.GetByID(ctx, n.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != n.ID {
		t.Fatalf("expected id=%s, got %s", n.ID, got.ID)
	}
}

func TestEnqueueService_GetByID_NotFound(t *testing.T) {
	svc, _ := newService()
	if _, err := svc.GetByID(context.Background(), "does-not-exist"); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
