package slackbot

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// acker is the part of socketmode.Client used to acknowledge envelopes
type acker interface {
	Ack(req socketmode.Request, payload ...interface{})
}

// SocketBot receives events over Socket Mode (xapp- token) and routes them through a Dispatcher
type SocketBot struct {
	sm         *socketmode.Client
	ack        acker
	dispatcher *Dispatcher
	logger     *log.Logger
}

// NewSocketBot constructs a Socket Mode runner. client must carry the app-level
// token via slack.OptionAppLevelToken.
func NewSocketBot(client *slack.Client, dispatcher *Dispatcher, logger *log.Logger) (*SocketBot, error) {
	if client == nil {
		return nil, fmt.Errorf("nil slack client")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("nil dispatcher")
	}
	if logger == nil {
		logger = log.New(os.Stdout, "slackbot ", log.LstdFlags)
	}
	sm := socketmode.New(client)
	return &SocketBot{
		sm:         sm,
		ack:        sm,
		dispatcher: dispatcher,
		logger:     logger,
	}, nil
}

// Start runs the websocket connection and event loop until ctx is cancelled
func (b *SocketBot) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- b.sm.RunContext(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-runErr:
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("socketmode run: %w", err)
			}
			return nil
		case ev := <-b.sm.Events:
			b.handleEvent(ctx, ev)
		}
	}
}

func (b *SocketBot) handleEvent(ctx context.Context, ev socketmode.Event) {
	switch ev.Type {
	case socketmode.EventTypeConnecting:
		b.logger.Printf("event=socket status=connecting")
	case socketmode.EventTypeConnected:
		b.logger.Printf("event=socket status=connected")
	case socketmode.EventTypeInvalidAuth:
		b.logger.Printf("invalid_auth: verify SLACK_APP_TOKEN and SLACK_BOT_TOKEN")
	case socketmode.EventTypeConnectionError:
		b.logger.Printf("connection_error: %v", ev.Data)
	case socketmode.EventTypeIncomingError:
		b.logger.Printf("incoming_error: %v", ev.Data)
	case socketmode.EventTypeEventsAPI:
		// Ack first to avoid redelivery
		if ev.Request != nil {
			b.ack.Ack(*ev.Request)
		}
		payload, ok := ev.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		b.dispatcher.Dispatch(ctx, payload)
	default:
		// ignore
	}
}
