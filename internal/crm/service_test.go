package crm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService() (*Service, *MemStore) {
	store := NewMemStore()
	return NewService(store), store
}

func seedContact(t *testing.T, svc *Service, tenantID, name, phone, email string) *Contact {
	t.Helper()
	c := &Contact{TenantID: tenantID, Name: name, Phone: phone, Email: email}
	if err := svc.CreateContact(context.Background(), c); err != nil {
		t.Fatalf("seed contact: %v", err)
	}
	return c
}

func seedCampaign(t *testing.T, svc *Service, tenantID string) *Campaign {
	t.Helper()
	c := &Campaign{
		TenantID: tenantID,
		Name:     "Post-sale check",
		Type:     TypeFollowUp,
		Channel:  ChannelWhatsApp,
		Template: "Hi {{name}}, how is everything?",
	}
	if err := svc.CreateCampaign(context.Background(), c); err != nil {
		t.Fatalf("seed campaign: %v", err)
	}
	return c
}

func TestCreateContactValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name    string
		contact Contact
	}{
		{"missing name", Contact{TenantID: "t1", Phone: "11999990000"}},
		{"blank name", Contact{TenantID: "t1", Name: "   ", Email: "a@b.test"}},
		{"no channel", Contact{TenantID: "t1", Name: "Ana"}},
	}
	for _, tc := range cases {
		c := tc.contact
		if err := svc.CreateContact(ctx, &c); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestCreateContactDefaults(t *testing.T) {
	svc, _ := newTestService()
	c := seedContact(t, svc, "t1", "Ana", "11999990000", "ANA@Example.COM")
	if c.Origin != OriginManual {
		t.Fatalf("expected manual origin, got %q", c.Origin)
	}
	if c.Status != ContactActive {
		t.Fatalf("expected active status, got %q", c.Status)
	}
	if c.Email != "ana@example.com" {
		t.Fatalf("email not normalized: %q", c.Email)
	}
	if c.ID == "" {
		t.Fatal("expected assigned id")
	}
}

func TestContactTenantIsolation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	c := seedContact(t, svc, "t1", "Ana", "11999990000", "")

	if _, err := svc.GetContact(ctx, "t2", c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant read should be not found, got %v", err)
	}
	if err := svc.DeleteContact(ctx, "t2", c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant delete should be not found, got %v", err)
	}
	if _, err := svc.GetContact(ctx, "t1", c.ID); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}
}

func TestListContactsSearch(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	seedContact(t, svc, "t1", "Ana Silva", "11999990000", "ana@acme.test")
	seedContact(t, svc, "t1", "Bruno Costa", "11888880000", "bruno@acme.test")
	seedContact(t, svc, "t2", "Ana Other", "11777770000", "")

	got, err := svc.ListContacts(ctx, "t1", 1, 50, "ana")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Ana Silva" {
		t.Fatalf("unexpected search result: %+v", got)
	}

	all, err := svc.ListContacts(ctx, "t1", 1, 50, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 contacts for tenant, got %d", len(all))
	}
}

func TestListContactsSearchFiltersWithinPage(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	now := time.Now().UTC()
	for i, name := range []string{"Ana Silva", "Bruno Costa"} {
		err := store.Contacts().Create(ctx, &Contact{
			TenantID:  "t1",
			Name:      name,
			Phone:     "1199999000" + string(rune('0'+i)),
			Origin:    OriginManual,
			Status:    ContactActive,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	// The search filter runs after pagination. Page one holds only the
	// newest contact, so the match surfaces on page two.
	page1, err := svc.ListContacts(ctx, "t1", 1, 1, "ana")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page1) != 0 {
		t.Fatalf("expected empty first page, got %+v", page1)
	}
	page2, err := svc.ListContacts(ctx, "t1", 2, 1, "ana")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page2) != 1 || page2[0].Name != "Ana Silva" {
		t.Fatalf("expected the match on page two, got %+v", page2)
	}
}

func TestContactStatistics(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	seedContact(t, svc, "t1", "Ana", "11999990000", "ana@acme.test")
	seedContact(t, svc, "t1", "Bruno", "11888880000", "")
	inactive := seedContact(t, svc, "t1", "Carla", "", "carla@acme.test")
	inactive.Status = ContactInactive
	if err := svc.UpdateContact(ctx, inactive); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	stats, err := svc.ContactStatistics(ctx, "t1")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 3 || stats.Active != 2 || stats.Inactive != 1 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.WithPhone != 2 || stats.WithEmail != 2 || stats.Unreachable != 0 {
		t.Fatalf("unexpected channel counts: %+v", stats)
	}
}

func TestCreateCampaignValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name     string
		campaign Campaign
	}{
		{"missing name", Campaign{TenantID: "t1", Type: TypeSurvey, Channel: ChannelWhatsApp, Template: "hi"}},
		{"missing template", Campaign{TenantID: "t1", Name: "x", Type: TypeSurvey, Channel: ChannelWhatsApp}},
		{"bad type", Campaign{TenantID: "t1", Name: "x", Type: "spam", Channel: ChannelWhatsApp, Template: "hi"}},
		{"bad channel", Campaign{TenantID: "t1", Name: "x", Type: TypeSurvey, Channel: "pigeon", Template: "hi"}},
	}
	for _, tc := range cases {
		c := tc.campaign
		if err := svc.CreateCampaign(ctx, &c); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}

	ok := seedCampaign(t, svc, "t1")
	if ok.Status != StatusDraft {
		t.Fatalf("new campaign should be draft, got %q", ok.Status)
	}
}

func TestExecuteCampaignAllActiveContacts(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	seedContact(t, svc, "t1", "Ana", "11999990000", "")
	seedContact(t, svc, "t1", "Bruno", "11888880000", "")
	inactive := seedContact(t, svc, "t1", "Carla", "11777770000", "")
	inactive.Status = ContactInactive
	if err := svc.UpdateContact(ctx, inactive); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	seedContact(t, svc, "t2", "Other", "11666660000", "")
	campaign := seedCampaign(t, svc, "t1")

	n, err := svc.ExecuteCampaign(ctx, "t1", campaign.ID, nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 dispatches, got %d", n)
	}

	updated, err := svc.GetCampaign(ctx, "t1", campaign.ID)
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if updated.Status != StatusRunning {
		t.Fatalf("expected running, got %q", updated.Status)
	}
	if updated.TotalContacts != 2 {
		t.Fatalf("expected total_contacts 2, got %d", updated.TotalContacts)
	}

	stats, err := store.Metrics().CampaignStats(ctx, "t1", campaign.ID)
	if err != nil {
		t.Fatalf("campaign stats: %v", err)
	}
	if stats.Pending != 2 || stats.Sent != 0 || stats.Failed != 0 {
		t.Fatalf("unexpected dispatch stats: %+v", stats)
	}
}

func TestExecuteCampaignRendersTemplate(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	seedContact(t, svc, "t1", "Ana", "11999990000", "")
	campaign := seedCampaign(t, svc, "t1")

	if _, err := svc.ExecuteCampaign(ctx, "t1", campaign.ID, nil); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	d, err := store.Dispatches().FindLatestByPhone(ctx, "11999990000")
	if err != nil {
		t.Fatalf("find dispatch: %v", err)
	}
	if d.Message != "Hi Ana, how is everything?" {
		t.Fatalf("template not rendered: %q", d.Message)
	}
	if d.Status != DispatchPending {
		t.Fatalf("expected pending, got %q", d.Status)
	}
}

func TestExecuteCampaignStatusRules(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	seedContact(t, svc, "t1", "Ana", "11999990000", "")
	campaign := seedCampaign(t, svc, "t1")

	if _, err := svc.ExecuteCampaign(ctx, "t1", campaign.ID, nil); err != nil {
		t.Fatalf("first execute failed: %v", err)
	}
	if _, err := svc.ExecuteCampaign(ctx, "t1", campaign.ID, nil); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("re-executing a running campaign should fail, got %v", err)
	}

	if _, err := svc.PauseCampaign(ctx, "t1", campaign.ID); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if _, err := svc.ExecuteCampaign(ctx, "t1", campaign.ID, nil); err != nil {
		t.Fatalf("executing a paused campaign should work: %v", err)
	}
}

func TestExecuteCampaignNoRecipients(t *testing.T) {
	svc, _ := newTestService()
	campaign := seedCampaign(t, svc, "t1")
	if _, err := svc.ExecuteCampaign(context.Background(), "t1", campaign.ID, nil); !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
}

func TestCampaignTransitions(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	seedContact(t, svc, "t1", "Ana", "11999990000", "")
	campaign := seedCampaign(t, svc, "t1")

	if _, err := svc.PauseCampaign(ctx, "t1", campaign.ID); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("pausing a draft should fail, got %v", err)
	}
	if _, err := svc.ResumeCampaign(ctx, "t1", campaign.ID); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("resuming a draft should fail, got %v", err)
	}

	if _, err := svc.ExecuteCampaign(ctx, "t1", campaign.ID, nil); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	paused, err := svc.PauseCampaign(ctx, "t1", campaign.ID)
	if err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if paused.Status != StatusPaused {
		t.Fatalf("expected paused, got %q", paused.Status)
	}
	resumed, err := svc.ResumeCampaign(ctx, "t1", campaign.ID)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if resumed.Status != StatusRunning {
		t.Fatalf("expected running, got %q", resumed.Status)
	}
	cancelled, err := svc.CancelCampaign(ctx, "t1", campaign.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %q", cancelled.Status)
	}
	if _, err := svc.CancelCampaign(ctx, "t1", campaign.ID); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("cancelling twice should fail, got %v", err)
	}
}

func TestUpdateCampaignKeepsStatus(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	seedContact(t, svc, "t1", "Ana", "11999990000", "")
	campaign := seedCampaign(t, svc, "t1")
	if _, err := svc.ExecuteCampaign(ctx, "t1", campaign.ID, nil); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	campaign.Name = "Renamed"
	campaign.Status = StatusDraft // callers cannot reset status through update
	if err := svc.UpdateCampaign(ctx, campaign); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	got, err := svc.GetCampaign(ctx, "t1", campaign.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "Renamed" {
		t.Fatalf("name not updated: %q", got.Name)
	}
	if got.Status != StatusRunning {
		t.Fatalf("status should survive update, got %q", got.Status)
	}
}

func TestRecordInboundCorrelatesAndClassifies(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	contact := seedContact(t, svc, "t1", "Ana", "+55 (11) 99999-0000", "")
	campaign := seedCampaign(t, svc, "t1")
	if _, err := svc.ExecuteCampaign(ctx, "t1", campaign.ID, nil); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	reply, err := svc.RecordInbound(ctx, "5511999990000", "Thanks, everything is perfect!")
	if err != nil {
		t.Fatalf("record inbound failed: %v", err)
	}
	if reply.TenantID != "t1" || reply.CampaignID != campaign.ID || reply.ContactID != contact.ID {
		t.Fatalf("reply not correlated: %+v", reply)
	}
	if reply.Sentiment != SentimentPositive {
		t.Fatalf("expected positive sentiment, got %q", reply.Sentiment)
	}

	recent, err := svc.RecentReplies(ctx, "t1", 10)
	if err != nil {
		t.Fatalf("recent replies failed: %v", err)
	}
	if len(recent) != 1 || recent[0].Content != "Thanks, everything is perfect!" {
		t.Fatalf("unexpected recent replies: %+v", recent)
	}
}

func TestRecordInboundUnknownNumber(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.RecordInbound(context.Background(), "5500000000000", "hello"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkDispatch(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	seedContact(t, svc, "t1", "Ana", "11999990000", "")
	campaign := seedCampaign(t, svc, "t1")
	if _, err := svc.ExecuteCampaign(ctx, "t1", campaign.ID, nil); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	d, err := store.Dispatches().FindLatestByPhone(ctx, "11999990000")
	if err != nil {
		t.Fatalf("find dispatch: %v", err)
	}

	if err := svc.MarkDispatch(ctx, d.ID, DispatchSent, "wamid.123", ""); err != nil {
		t.Fatalf("mark dispatch failed: %v", err)
	}
	stats, err := svc.CampaignStatistics(ctx, "t1", campaign.ID)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Sent != 1 || stats.Pending != 0 {
		t.Fatalf("unexpected stats after send: %+v", stats)
	}
}

func TestRenderTemplate(t *testing.T) {
	c := &Contact{Name: "Ana", Phone: "11999990000", Email: "ana@acme.test"}
	got := RenderTemplate("Hi {{name}} ({{phone}}, {{email}}), {{unknown}} stays", c)
	want := "Hi Ana (11999990000, ana@acme.test), {{unknown}} stays"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if RenderTemplate("plain", nil) != "plain" {
		t.Fatal("nil contact should pass template through")
	}
}

func TestBuiltinTemplatesCoverAllTypes(t *testing.T) {
	seen := make(map[CampaignType]bool)
	for _, tpl := range BuiltinTemplates() {
		if tpl.Template == "" || tpl.ID == "" {
			t.Fatalf("incomplete template: %+v", tpl)
		}
		seen[tpl.Type] = true
	}
	for _, ct := range []CampaignType{TypeGreeting, TypeSurvey, TypeFollowUp, TypePromotional} {
		if !seen[ct] {
			t.Errorf("no builtin template for type %q", ct)
		}
	}
}
