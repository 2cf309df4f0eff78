package slackbot

import (
	"context"
	"errors"
	"testing"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAcker struct {
	acked []string
}

func (f *fakeAcker) Ack(req socketmode.Request, _ ...interface{}) {
	f.acked = append(f.acked, req.EnvelopeID)
}

func TestSocketBot_AcksAndDispatchesMention(t *testing.T) {
	sender := &fakeSender{}
	logger, _ := bufferLogger()
	acker := &fakeAcker{}
	bot := &SocketBot{
		ack:        acker,
		dispatcher: NewMentionDispatcher(NewMentionHandler(sender, logger), logger),
		logger:     logger,
	}

	payload, err := slackevents.ParseEvent(appMentionBody("C1", "<@U1> over socket", "5.0"), slackevents.OptionNoVerifyToken())
	require.NoError(t, err)

	bot.handleEvent(context.Background(), socketmode.Event{
		Type:    socketmode.EventTypeEventsAPI,
		Data:    payload,
		Request: &socketmode.Request{Type: "events_api", EnvelopeID: "env-1"},
	})

	assert.Equal(t, []string{"env-1"}, acker.acked)
	assert.Equal(t, 1, sender.callCount())
}

func TestSocketBot_SendFailureDoesNotBlockAck(t *testing.T) {
	sender := &fakeSender{err: errors.New("boom")}
	logger, logs := bufferLogger()
	acker := &fakeAcker{}
	bot := &SocketBot{
		ack:        acker,
		dispatcher: NewMentionDispatcher(NewMentionHandler(sender, logger), logger),
		logger:     logger,
	}

	payload, err := slackevents.ParseEvent(appMentionBody("C1", "hi", "6.0"), slackevents.OptionNoVerifyToken())
	require.NoError(t, err)

	require.NotPanics(t, func() {
		bot.handleEvent(context.Background(), socketmode.Event{
			Type:    socketmode.EventTypeEventsAPI,
			Data:    payload,
			Request: &socketmode.Request{EnvelopeID: "env-2"},
		})
	})
	assert.Equal(t, []string{"env-2"}, acker.acked)
	assert.Contains(t, logs.String(), "boom")
}

func TestSocketBot_IgnoresOtherEnvelopes(t *testing.T) {
	sender := &fakeSender{}
	logger, logs := bufferLogger()
	acker := &fakeAcker{}
	bot := &SocketBot{
		ack:        acker,
		dispatcher: NewMentionDispatcher(NewMentionHandler(sender, logger), logger),
		logger:     logger,
	}

	bot.handleEvent(context.Background(), socketmode.Event{Type: socketmode.EventTypeConnected})
	bot.handleEvent(context.Background(), socketmode.Event{Type: socketmode.EventTypeInvalidAuth})
	bot.handleEvent(context.Background(), socketmode.Event{
		Type:    socketmode.EventTypeEventsAPI,
		Data:    "not an events api payload",
		Request: &socketmode.Request{EnvelopeID: "env-3"},
	})

	assert.Equal(t, []string{"env-3"}, acker.acked)
	assert.Zero(t, sender.callCount())
	assert.Contains(t, logs.String(), "invalid_auth")
}

func TestNewSocketBotValidatesArgs(t *testing.T) {
	_, err := NewSocketBot(nil, NewDispatcher(nil), nil)
	require.Error(t, err)

	_, err = NewSocketBot(slack.New("xoxb-test", slack.OptionAppLevelToken("xapp-test")), nil, nil)
	require.Error(t, err)

	bot, err := NewSocketBot(slack.New("xoxb-test", slack.OptionAppLevelToken("xapp-test")), NewDispatcher(nil), nil)
	require.NoError(t, err)
	require.NotNil(t, bot.sm)
}
