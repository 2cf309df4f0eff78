package slackbot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ca-srg/hellobot/internal/mention"
)

var slackTracer = otel.Tracer("hellobot/slackbot")

// MessageSender wraps the subset of slack.Client used to reply
type MessageSender interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// MentionHandler replies to app_mention events with a threaded greeting
type MentionHandler struct {
	sender   MessageSender
	logger   *log.Logger
	reporter ErrorReporter
}

// NewMentionHandler constructs a MentionHandler
func NewMentionHandler(sender MessageSender, logger *log.Logger) *MentionHandler {
	if logger == nil {
		logger = log.New(os.Stdout, "slackbot ", log.LstdFlags)
	}
	return &MentionHandler{
		sender:   sender,
		logger:   logger,
		reporter: &noopReporter{},
	}
}

// SetReporter forwards swallowed failures to r
func (h *MentionHandler) SetReporter(r ErrorReporter) {
	if r == nil {
		r = &noopReporter{}
	}
	h.reporter = r
}

// OnAppMention handles one app_mention event. Failures are logged and dropped so
// that Slack does not redeliver an event that was received successfully.
func (h *MentionHandler) OnAppMention(ctx context.Context, ev *slackevents.AppMentionEvent) {
	h.logger.Printf("event=app_mention raw=%+v", ev)
	if ev == nil {
		h.fail(&HandlerFailure{Stage: StageDecode, Err: fmt.Errorf("nil app_mention event")})
		return
	}

	defer func() {
		if r := recover(); r != nil {
			h.fail(&HandlerFailure{Stage: StagePanic, Channel: ev.Channel, Err: fmt.Errorf("%v", r)})
		}
	}()

	if _, err := h.Handle(ctx, EventFromAppMention(ev)); err != nil {
		h.fail(err)
	}
}

// Handle derives the reply for ev and posts it once. No retry is attempted.
func (h *MentionHandler) Handle(ctx context.Context, ev mention.Event) (mention.Reply, error) {
	ctx, span := slackTracer.Start(ctx, "slackbot.handle_mention")
	defer span.End()

	attrs := []attribute.KeyValue{
		attribute.String("slack.channel", ev.ChannelID),
		attribute.String("slack.user_id", ev.User),
	}
	span.SetAttributes(attrs...)

	start := time.Now()
	hadError := false
	defer func() {
		recordMentionMetrics(ctx, attrs, time.Since(start), hadError)
	}()

	if err := ev.Validate(); err != nil {
		hadError = true
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid event")
		return mention.Reply{}, &HandlerFailure{Stage: StageDecode, Channel: ev.ChannelID, Err: err}
	}

	reply := mention.BuildReply(ev)
	span.SetAttributes(attribute.String("slack.thread_ts", reply.ThreadTimestamp))

	_, ts, err := h.sender.PostMessageContext(ctx, reply.ChannelID,
		slack.MsgOptionText(reply.Text, false),
		slack.MsgOptionTS(reply.ThreadTimestamp),
	)
	if err != nil {
		hadError = true
		span.RecordError(err)
		span.SetStatus(codes.Error, "post message failed")
		return reply, &HandlerFailure{Stage: StageSend, Channel: reply.ChannelID, Err: err}
	}

	h.logger.Printf("event=post_message status=ok channel=%s thread_ts=%s ts=%s", reply.ChannelID, reply.ThreadTimestamp, ts)
	return reply, nil
}

func (h *MentionHandler) fail(err error) {
	h.logger.Printf("event=handle_mention status=error err=%v", err)
	ctxInfo := map[string]string{}
	var hf *HandlerFailure
	if errors.As(err, &hf) {
		ctxInfo["stage"] = string(hf.Stage)
		ctxInfo["channel"] = hf.Channel
	}
	h.reporter.Report(err, ctxInfo)
}

// EventFromAppMention maps the Events API payload onto the reply input.
// Replies thread under event_ts, the id of the mentioning message itself.
func EventFromAppMention(ev *slackevents.AppMentionEvent) mention.Event {
	return mention.Event{
		ChannelID:      ev.Channel,
		EventTimestamp: ev.EventTimeStamp,
		RawText:        ev.Text,
		User:           ev.User,
	}
}
