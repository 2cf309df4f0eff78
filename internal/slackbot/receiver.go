package slackbot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// Request is an inbound Events API delivery, independent of the transport that carried it
type Request struct {
	Headers http.Header
	Body    []byte
}

// Response is what the transport should return to Slack
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// Receiver authenticates and decodes Events API requests and hands them to a Dispatcher
type Receiver struct {
	signingSecret string
	dispatcher    *Dispatcher
	logger        *log.Logger
}

// NewReceiver constructs a Receiver that verifies requests with signingSecret
func NewReceiver(signingSecret string, dispatcher *Dispatcher, logger *log.Logger) (*Receiver, error) {
	if strings.TrimSpace(signingSecret) == "" {
		return nil, fmt.Errorf("signing secret required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("nil dispatcher")
	}
	if logger == nil {
		logger = log.New(os.Stdout, "slackbot ", log.LstdFlags)
	}
	return &Receiver{
		signingSecret: signingSecret,
		dispatcher:    dispatcher,
		logger:        logger,
	}, nil
}

// Handle processes a single request. Callback events are dispatched before
// returning so the reply is sent while the host keeps the invocation alive.
func (r *Receiver) Handle(ctx context.Context, req Request) Response {
	if err := r.verify(req); err != nil {
		r.logger.Printf("event=verify status=error err=%v", err)
		return textResponse(http.StatusUnauthorized, "invalid signature")
	}

	if retry := req.Headers.Get("X-Slack-Retry-Num"); retry != "" {
		r.logger.Printf("event=receive retry_num=%s reason=%s", retry, req.Headers.Get("X-Slack-Retry-Reason"))
	}

	if isSSLCheck(req) {
		return Response{StatusCode: http.StatusOK}
	}

	ev, err := slackevents.ParseEvent(json.RawMessage(req.Body), slackevents.OptionNoVerifyToken())
	if err != nil {
		// slackevents rejects inner types it has no mapping for; those are still valid deliveries
		if outer, inner, ok := peekEventTypes(req.Body); ok && outer == slackevents.CallbackEvent {
			r.logger.Printf("event=parse status=ignored type=%s err=%v", inner, err)
			return Response{StatusCode: http.StatusOK}
		}
		r.logger.Printf("event=parse status=error err=%v", err)
		return textResponse(http.StatusBadRequest, "invalid event payload")
	}

	switch ev.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(req.Body, &challenge); err != nil {
			return textResponse(http.StatusBadRequest, "invalid url_verification payload")
		}
		return textResponse(http.StatusOK, challenge.Challenge)
	case slackevents.CallbackEvent:
		r.dispatcher.Dispatch(ctx, ev)
	default:
		r.logger.Printf("event=receive status=ignored type=%s", ev.Type)
	}
	return Response{StatusCode: http.StatusOK}
}

func (r *Receiver) verify(req Request) error {
	sv, err := slack.NewSecretsVerifier(req.Headers, r.signingSecret)
	if err != nil {
		return err
	}
	if _, err := sv.Write(req.Body); err != nil {
		return err
	}
	return sv.Ensure()
}

// isSSLCheck reports whether the request is Slack's form-encoded certificate probe
func isSSLCheck(req Request) bool {
	if !strings.HasPrefix(req.Headers.Get("Content-Type"), "application/x-www-form-urlencoded") {
		return false
	}
	values, err := url.ParseQuery(string(req.Body))
	if err != nil {
		return false
	}
	return values.Get("ssl_check") == "1"
}

func peekEventTypes(body []byte) (outer, inner string, ok bool) {
	var envelope struct {
		Type  string `json:"type"`
		Event struct {
			Type string `json:"type"`
		} `json:"event"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", "", false
	}
	return envelope.Type, envelope.Event.Type, true
}

func textResponse(status int, body string) Response {
	return Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "text/plain"},
		Body:       body,
	}
}
