package dashboard

import (
	"context"
	"testing"

	"posvenda.org/internal/crm"
)

func seedActivity(t *testing.T, store *crm.MemStore) {
	t.Helper()
	ctx := context.Background()
	svc := crm.NewService(store)

	contacts := []*crm.Contact{
		{TenantID: "t1", Name: "Ana", Phone: "11999990001"},
		{TenantID: "t1", Name: "Bruno", Phone: "11999990002"},
		{TenantID: "t1", Name: "Carla", Phone: "11999990003"},
		{TenantID: "t1", Name: "Davi", Phone: "11999990004"},
	}
	for _, c := range contacts {
		if err := svc.CreateContact(ctx, c); err != nil {
			t.Fatalf("seed contact: %v", err)
		}
	}

	campaign := &crm.Campaign{
		TenantID: "t1",
		Name:     "Survey",
		Type:     crm.TypeSurvey,
		Channel:  crm.ChannelWhatsApp,
		Template: "Hi {{name}}, how did we do?",
	}
	if err := svc.CreateCampaign(ctx, campaign); err != nil {
		t.Fatalf("seed campaign: %v", err)
	}
	if _, err := svc.ExecuteCampaign(ctx, "t1", campaign.ID, nil); err != nil {
		t.Fatalf("execute: %v", err)
	}

	replies := []struct {
		phone, text string
	}{
		{"11999990001", "Thanks, excellent service!"},
		{"11999990002", "It was ok"},
		{"11999990003", "Terrible, never again"},
		{"11999990004", "Perfect, thanks"},
	}
	for _, r := range replies {
		if _, err := svc.RecordInbound(ctx, r.phone, r.text); err != nil {
			t.Fatalf("seed reply for %s: %v", r.phone, err)
		}
	}
}

func TestOverview(t *testing.T) {
	store := crm.NewMemStore()
	seedActivity(t, store)
	svc := NewService(store.Metrics())

	o, err := svc.Overview(context.Background(), "t1")
	if err != nil {
		t.Fatalf("overview failed: %v", err)
	}
	if o.Counts.Contacts != 4 || o.Counts.Campaigns != 1 {
		t.Fatalf("unexpected counts: %+v", o.Counts)
	}
	if o.Counts.Dispatches != 4 || o.Counts.Replies != 4 {
		t.Fatalf("unexpected activity counts: %+v", o.Counts)
	}
	if o.ResponseRate != 1.0 {
		t.Fatalf("expected response rate 1.0, got %v", o.ResponseRate)
	}
	// 2 positive replies out of 4
	if o.SatisfactionPct != 50 {
		t.Fatalf("expected satisfaction 50, got %v", o.SatisfactionPct)
	}
}

func TestOverviewEmptyTenant(t *testing.T) {
	svc := NewService(crm.NewMemStore().Metrics())
	o, err := svc.Overview(context.Background(), "empty")
	if err != nil {
		t.Fatalf("overview failed: %v", err)
	}
	if o.ResponseRate != 0 || o.SatisfactionPct != 0 {
		t.Fatalf("empty tenant should have zero rates: %+v", o)
	}
}

func TestSentimentBreakdown(t *testing.T) {
	store := crm.NewMemStore()
	seedActivity(t, store)
	svc := NewService(store.Metrics())

	b, err := svc.Sentiment(context.Background(), "t1")
	if err != nil {
		t.Fatalf("sentiment failed: %v", err)
	}
	if b.Counts.Positive != 2 || b.Counts.Neutral != 1 || b.Counts.Negative != 1 {
		t.Fatalf("unexpected sentiment counts: %+v", b.Counts)
	}
	if b.PositivePct != 50 || b.NeutralPct != 25 || b.NegativePct != 25 {
		t.Fatalf("unexpected percentages: %+v", b)
	}
}

func TestCampaignsByStatus(t *testing.T) {
	store := crm.NewMemStore()
	seedActivity(t, store)
	svc := NewService(store.Metrics())

	byStatus, err := svc.CampaignsByStatus(context.Background(), "t1")
	if err != nil {
		t.Fatalf("campaigns by status failed: %v", err)
	}
	if byStatus[crm.StatusRunning] != 1 {
		t.Fatalf("expected one running campaign: %v", byStatus)
	}
}

func TestDispatchesPerDay(t *testing.T) {
	store := crm.NewMemStore()
	seedActivity(t, store)
	svc := NewService(store.Metrics())

	series, err := svc.DispatchesPerDay(context.Background(), "t1", 7)
	if err != nil {
		t.Fatalf("dispatches per day failed: %v", err)
	}
	total := 0
	for _, p := range series {
		total += p.Count
	}
	if total != 4 {
		t.Fatalf("expected 4 dispatches in window, got %d (%+v)", total, series)
	}
}
