package payments

import (
	"context"
	"testing"

	"github.com/yungbote/matside-backend/internal/data/repos/testutil"
	types "github.com/yungbote/matside-backend/internal/domain"
	"github.com/yungbote/matside-backend/internal/platform/dbctx"
)

func TestWebhookEventRecordOnce(t *testing.T) {
	db := testutil.DB(t)
	repo := NewWebhookEventRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	inserted, err := repo.Record(dbc, &types.WebhookEvent{ID: "evt_1", Provider: "stripe", Type: "payment_intent.succeeded"})
	if err != nil || !inserted {
		t.Fatalf("first record: inserted=%v err=%v", inserted, err)
	}
	inserted, err = repo.Record(dbc, &types.WebhookEvent{ID: "evt_1", Provider: "stripe", Type: "payment_intent.succeeded"})
	if err != nil || inserted {
		t.Fatalf("redelivery: inserted=%v err=%v", inserted, err)
	}

	ev, err := repo.Get(dbc, "evt_1")
	if err != nil || ev == nil {
		t.Fatalf("get: ev=%v err=%v", ev, err)
	}
	if ev.Status != types.WebhookStatusReceived || ev.Done() {
		t.Fatalf("fresh event should be pending: %+v", ev)
	}
}

func TestWebhookEventStatusTransitions(t *testing.T) {
	db := testutil.DB(t)
	repo := NewWebhookEventRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}
	_, _ = repo.Record(dbc, &types.WebhookEvent{ID: "evt_2", Provider: "stripe", Type: "payment_intent.succeeded"})

	if err := repo.MarkFailed(dbc, "evt_2", "db down"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	ev, _ := repo.Get(dbc, "evt_2")
	if ev.Status != types.WebhookStatusFailed || ev.Attempts != 1 || ev.LastError != "db down" {
		t.Fatalf("unexpected failed state: %+v", ev)
	}

	if err := repo.MarkDone(dbc, "evt_2", types.WebhookStatusProcessed, "pi_9"); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	ev, _ = repo.Get(dbc, "evt_2")
	if !ev.Done() || ev.Attempts != 2 || ev.PaymentIntentID != "pi_9" || ev.ProcessedAt == nil || ev.LastError != "" {
		t.Fatalf("unexpected processed state: %+v", ev)
	}

	missing, err := repo.Get(dbc, "evt_missing")
	if err != nil || missing != nil {
		t.Fatalf("missing event: ev=%v err=%v", missing, err)
	}
}
