package messenger

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Tiliavir/sheetboard/internal/requestctx"
)

const maxEventBytes = 1 << 20

var tracer = otel.Tracer("github.com/Tiliavir/sheetboard/internal/messenger")

// MessageHandler receives the text of one inbound message.
type MessageHandler interface {
	Handle(ctx context.Context, senderID, recipientID, text string)
}

// Event is the payload of a webhook POST.
type Event struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups the messaging events for one page.
type Entry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Messaging []Messaging `json:"messaging"`
}

// Messaging is a single messaging event.
type Messaging struct {
	Sender    Party    `json:"sender"`
	Recipient Party    `json:"recipient"`
	Timestamp int64    `json:"timestamp"`
	Message   *Message `json:"message,omitempty"`
}

// Party identifies a sender or recipient.
type Party struct {
	ID string `json:"id"`
}

// Message is the message part of a messaging event.
type Message struct {
	MID    string `json:"mid"`
	Text   string `json:"text"`
	IsEcho bool   `json:"is_echo"`
}

// Webhook serves the subscription handshake and inbound message events.
type Webhook struct {
	verifyToken string
	handler     MessageHandler
	logger      *log.Logger
}

// NewWebhook creates a webhook that dispatches text messages to handler.
func NewWebhook(verifyToken string, handler MessageHandler, logger *log.Logger) *Webhook {
	if logger == nil {
		logger = log.Default()
	}
	return &Webhook{verifyToken: verifyToken, handler: handler, logger: logger}
}

func (w *Webhook) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.verify(rw, r)
	case http.MethodPost:
		w.receive(rw, r)
	default:
		rw.Header().Set("Allow", "GET, POST")
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// verify answers the subscription handshake: the challenge is echoed only
// when the verify token matches.
func (w *Webhook) verify(rw http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.challenge") != "" {
		token := q.Get("hub.verify_token")
		if w.verifyToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(w.verifyToken)) != 1 {
			http.Error(rw, "Verification token mismatch", http.StatusForbidden)
			return
		}
		rw.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(rw, q.Get("hub.challenge"))
		return
	}
	_, _ = io.WriteString(rw, "Hello world")
}

func (w *Webhook) receive(rw http.ResponseWriter, r *http.Request) {
	ctx, id := requestctx.NewRequestID(r.Context())
	ctx, span := tracer.Start(ctx, "messenger.Webhook.receive",
		trace.WithAttributes(attribute.String("request.id", id)))
	defer span.End()

	var event Event
	if err := json.NewDecoder(io.LimitReader(r.Body, maxEventBytes)).Decode(&event); err != nil {
		w.logger.Printf("op=webhook request=%s: decoding event: %v", id, err)
		span.RecordError(err)
		http.Error(rw, "bad request", http.StatusBadRequest)
		return
	}

	if event.Object == "page" {
		for _, entry := range event.Entry {
			for _, m := range entry.Messaging {
				if m.Message == nil || m.Message.IsEcho || m.Message.Text == "" {
					continue
				}
				w.handler.Handle(ctx, m.Sender.ID, m.Recipient.ID, m.Message.Text)
			}
		}
	}

	_, _ = io.WriteString(rw, "OK")
}
