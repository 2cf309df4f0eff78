package slackbot

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

// maxBodyBytes bounds an Events API request body
const maxBodyBytes = 1 << 20

// HTTPHandler serves the Events API request URL over plain net/http
type HTTPHandler struct {
	receiver *Receiver
	timeout  time.Duration
	logger   *log.Logger
}

// NewHTTPHandler wraps r. Each request gets at most timeout to verify, dispatch and reply.
func NewHTTPHandler(r *Receiver, timeout time.Duration, logger *log.Logger) *HTTPHandler {
	if logger == nil {
		logger = log.New(os.Stdout, "slackbot ", log.LstdFlags)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPHandler{receiver: r, timeout: timeout, logger: logger}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.NewString()
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err != nil {
		h.logger.Printf("event=http_read status=error request_id=%s err=%v", requestID, err)
		http.Error(w, "unable to read body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), h.timeout)
	defer cancel()

	start := time.Now()
	resp := h.receiver.Handle(ctx, Request{Headers: req.Header, Body: body})
	h.logger.Printf("event=http_request request_id=%s status=%d elapsed=%s", requestID, resp.StatusCode, time.Since(start))

	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp Response) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		_, _ = io.WriteString(w, resp.Body)
	}
}

// HealthHandler answers liveness probes
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "ok")
	})
}
