package intake

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"eventpipe/internal"
	"eventpipe/pkg/event"
)

// Handler accepts raw JSON events over HTTP and hands them to the pipeline
// through the configured publisher.
type Handler struct {
	cfg       internal.IntakeConfig
	publisher internal.Publisher
	maxBody   int64
	logger    *log.Logger
}

func NewHandler(cfg internal.IntakeConfig, publisher internal.Publisher, maxBody int64, logger *log.Logger) *Handler {
	if logger == nil {
		logger = internal.NewLogger("intake")
	}
	return &Handler{cfg: cfg, publisher: publisher, maxBody: maxBody, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body := r.Body
	if h.maxBody > 0 {
		body = http.MaxBytesReader(w, body, h.maxBody)
	}
	rawBody, err := io.ReadAll(body)
	if err != nil {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}

	source := h.cfg.Source
	if header := r.Header.Get("X-Event-Source"); header != "" {
		source = header
	}

	doc, err := event.ParseDocument(rawBody)
	if err != nil {
		internal.IncParseError(source)
		h.logger.Printf("intake parse failed source=%s: %v", source, err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	doc.Set("eventpipe.source", source)
	doc.Set("eventpipe.received_at", time.Now().UTC().Format(time.RFC3339Nano))

	handle, err := event.NewHandle(doc)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	env := internal.Envelope{
		Source:  source,
		Topic:   h.cfg.Topic,
		Payload: json.RawMessage(handle.Document().Raw()),
	}
	if err := h.publisher.Publish(r.Context(), h.cfg.Topic, env); err != nil {
		h.logger.Printf("intake publish %s failed: %v", h.cfg.Topic, err)
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	internal.IncReceived(source)
	w.WriteHeader(http.StatusAccepted)
}
