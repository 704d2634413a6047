package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendText(t *testing.T) {
	var gotPath, gotKey string
	var gotBody sendTextRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"key":{"id":"wamid.ABC123"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret-key", "main", WithHTTPClient(srv.Client()))
	id, err := client.SendText(context.Background(), "(11) 99999-0000", "Hi Ana")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if id != "wamid.ABC123" {
		t.Fatalf("unexpected message id: %q", id)
	}
	if gotPath != "/message/sendText/main" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if gotKey != "secret-key" {
		t.Fatalf("unexpected api key: %q", gotKey)
	}
	if gotBody.Number != "5511999990000" {
		t.Fatalf("number not normalized: %q", gotBody.Number)
	}
	if gotBody.Text != "Hi Ana" {
		t.Fatalf("unexpected text: %q", gotBody.Text)
	}
}

func TestSendTextGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "instance disconnected", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", "main", WithHTTPClient(srv.Client()))
	if _, err := client.SendText(context.Background(), "11999990000", "hi"); !errors.Is(err, ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}
}

func TestSendTextNotConfigured(t *testing.T) {
	client := NewClient("", "", "")
	if _, err := client.SendText(context.Background(), "11999990000", "hi"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestInstanceStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/instance/connectionState/main" {
			t.Errorf("unexpected path: %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"instance":{"instanceName":"main","state":"open"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", "main", WithHTTPClient(srv.Client()))
	state, err := client.InstanceStatus(context.Background())
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if state.Instance != "main" || !state.Connected() {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestNormalizeNumber(t *testing.T) {
	cases := []struct{ in, want string }{
		{"(11) 99999-0000", "5511999990000"},
		{"11999990000", "5511999990000"},
		{"1199990000", "551199990000"},
		{"5511999990000", "5511999990000"},
		{"+55 11 99999-0000", "5511999990000"},
	}
	for _, tc := range cases {
		if got := NormalizeNumber(tc.in); got != tc.want {
			t.Errorf("NormalizeNumber(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseInbound(t *testing.T) {
	raw := []byte(`{
		"event": "messages.upsert",
		"instance": "main",
		"data": {
			"key": {"remoteJid": "5511999990000@s.whatsapp.net", "fromMe": false},
			"pushName": "Ana",
			"message": {"conversation": "Thanks, all good!"}
		}
	}`)
	var evt WebhookEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	msg, ok := ParseInbound(evt)
	if !ok {
		t.Fatal("expected inbound message")
	}
	if msg.Phone != "5511999990000" || msg.Text != "Thanks, all good!" || msg.PushName != "Ana" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestParseInboundIgnores(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"other event", `{"event":"connection.update","data":{}}`},
		{"own echo", `{"event":"messages.upsert","data":{"key":{"remoteJid":"5511999990000@s.whatsapp.net","fromMe":true},"message":{"conversation":"hi"}}}`},
		{"group message", `{"event":"messages.upsert","data":{"key":{"remoteJid":"123456789@g.us"},"message":{"conversation":"hi"}}}`},
		{"no text", `{"event":"messages.upsert","data":{"key":{"remoteJid":"5511999990000@s.whatsapp.net"},"message":{}}}`},
	}
	for _, tc := range cases {
		var evt WebhookEvent
		if err := json.Unmarshal([]byte(tc.raw), &evt); err != nil {
			t.Fatalf("%s: unmarshal: %v", tc.name, err)
		}
		if _, ok := ParseInbound(evt); ok {
			t.Errorf("%s: expected event to be ignored", tc.name)
		}
	}
}

func TestParseInboundUppercaseEvent(t *testing.T) {
	raw := []byte(`{"event":"MESSAGES_UPSERT","data":{"key":{"remoteJid":"5511999990000@s.whatsapp.net"},"message":{"extendedTextMessage":{"text":"score 10"}}}}`)
	var evt WebhookEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	msg, ok := ParseInbound(evt)
	if !ok {
		t.Fatal("expected inbound message")
	}
	if msg.Text != "score 10" {
		t.Fatalf("unexpected text: %q", msg.Text)
	}
}
