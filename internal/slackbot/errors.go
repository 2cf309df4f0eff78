package slackbot

import "fmt"

// Stage identifies where handling a mention failed
type Stage string

const (
	StageDecode Stage = "decode"
	StageSend   Stage = "send"
	StagePanic  Stage = "panic"
)

// HandlerFailure is returned by MentionHandler.Handle when a reply could not be
// derived or delivered. It never escapes OnAppMention.
type HandlerFailure struct {
	Stage   Stage
	Channel string
	Err     error
}

func (e *HandlerFailure) Error() string {
	return fmt.Sprintf("slackbot: %s failed (channel=%s): %v", e.Stage, e.Channel, e.Err)
}

func (e *HandlerFailure) Unwrap() error { return e.Err }

// ErrorReporter receives swallowed handler failures, e.g. for an external error tracker
type ErrorReporter interface {
	Report(err error, context map[string]string)
}

type noopReporter struct{}

func (n *noopReporter) Report(err error, context map[string]string) {}
