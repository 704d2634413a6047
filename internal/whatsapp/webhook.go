package whatsapp

import (
	"encoding/json"
	"strings"
)

// EventMessagesUpsert is the gateway event carrying inbound messages.
const EventMessagesUpsert = "messages.upsert"

// WebhookEvent is the raw envelope the gateway posts to our webhook.
type WebhookEvent struct {
	Event    string          `json:"event"`
	Instance string          `json:"instance"`
	Data     json.RawMessage `json:"data"`
}

type messageData struct {
	Key struct {
		RemoteJid string `json:"remoteJid"`
		FromMe    bool   `json:"fromMe"`
	} `json:"key"`
	PushName string `json:"pushName"`
	Message  struct {
		Conversation    string `json:"conversation"`
		ExtendedTextMsg struct {
			Text string `json:"text"`
		} `json:"extendedTextMessage"`
	} `json:"message"`
}

// InboundMessage is a decoded inbound text.
type InboundMessage struct {
	Phone    string
	PushName string
	Text     string
}

// ParseInbound extracts an inbound text message from a webhook event.
// It returns ok=false for other event types, our own outbound echoes and
// non-text payloads.
func ParseInbound(evt WebhookEvent) (InboundMessage, bool) {
	if !strings.EqualFold(evt.Event, EventMessagesUpsert) &&
		!strings.EqualFold(evt.Event, "MESSAGES_UPSERT") {
		return InboundMessage{}, false
	}
	var data messageData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		return InboundMessage{}, false
	}
	if data.Key.FromMe {
		return InboundMessage{}, false
	}
	text := data.Message.Conversation
	if text == "" {
		text = data.Message.ExtendedTextMsg.Text
	}
	text = strings.TrimSpace(text)
	phone := phoneFromJid(data.Key.RemoteJid)
	if phone == "" || text == "" {
		return InboundMessage{}, false
	}
	return InboundMessage{Phone: phone, PushName: data.PushName, Text: text}, true
}

// phoneFromJid turns "5511999990000@s.whatsapp.net" into "5511999990000".
// Group jids have no single sender phone and map to empty.
func phoneFromJid(jid string) string {
	if strings.HasSuffix(jid, "@g.us") {
		return ""
	}
	phone, _, found := strings.Cut(jid, "@")
	if !found {
		phone = jid
	}
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
