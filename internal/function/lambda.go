// Package function adapts API Gateway proxy invocations to the Slack event receiver.
package function

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/ca-srg/hellobot/internal/slackbot"
)

// EventReceiver handles a decoded inbound request
type EventReceiver interface {
	Handle(ctx context.Context, req slackbot.Request) slackbot.Response
}

// Handler is the Lambda entry point
type Handler struct {
	receiver EventReceiver
	logger   *log.Logger
	// flush runs after every invocation so telemetry leaves the sandbox before it is frozen
	flush func(context.Context) error
}

// NewHandler constructs a Handler around receiver
func NewHandler(receiver EventReceiver, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(os.Stdout, "lambda ", log.LstdFlags)
	}
	return &Handler{receiver: receiver, logger: logger}
}

// SetFlush registers a hook run at the end of each invocation
func (h *Handler) SetFlush(fn func(context.Context) error) { h.flush = fn }

// Invoke handles one API Gateway proxy event. Handler failures surface only in logs;
// the returned error is always nil so the invocation is never retried by the host.
func (h *Handler) Invoke(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestID := req.RequestContext.RequestID
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		requestID = lc.AwsRequestID
	}
	h.logger.Printf("event=invoke request_id=%s method=%s path=%s base64=%t", requestID, req.HTTPMethod, req.Path, req.IsBase64Encoded)

	if h.flush != nil {
		defer func() {
			if err := h.flush(ctx); err != nil {
				h.logger.Printf("event=flush status=error err=%v", err)
			}
		}()
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			h.logger.Printf("event=decode_body status=error request_id=%s err=%v", requestID, err)
			return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "invalid body encoding"}, nil
		}
		body = decoded
	}

	resp := h.receiver.Handle(ctx, slackbot.Request{
		Headers: toHTTPHeader(req.Headers, req.MultiValueHeaders),
		Body:    body,
	})
	h.logger.Printf("event=invoke_done request_id=%s status=%d", requestID, resp.StatusCode)

	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}, nil
}

// Start hands control to the Lambda runtime. callbacks run on SIGTERM.
func (h *Handler) Start(onShutdown ...func()) {
	lambda.StartWithOptions(h.Invoke, lambda.WithEnableSIGTERM(onShutdown...))
}

// InLambda reports whether the process runs inside the Lambda runtime
func InLambda() bool {
	return os.Getenv("AWS_LAMBDA_RUNTIME_API") != ""
}

// toHTTPHeader canonicalises header names, which API Gateway may deliver in any case
func toHTTPHeader(single map[string]string, multi map[string][]string) http.Header {
	h := make(http.Header, len(single)+len(multi))
	for k, vs := range multi {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	for k, v := range single {
		if h.Get(k) == "" {
			h.Set(k, v)
		}
	}
	return h
}
