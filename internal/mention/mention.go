package mention

import (
	"fmt"
	"regexp"
	"strings"
)

// Greeting prefixes every reply. The quoted echo of the user's text follows it.
const Greeting = "Hello! :wave: \n> "

// leadingMention matches a single <@...> token anchored at the start of the text.
var leadingMention = regexp.MustCompile(`^<@[^>]+>`)

// Event is the part of an app_mention event the reply is derived from
type Event struct {
	ChannelID      string
	EventTimestamp string
	RawText        string
	// User is carried for logging only
	User string
}

// Validate reports whether the event carries enough to address a threaded reply
func (e Event) Validate() error {
	if strings.TrimSpace(e.ChannelID) == "" {
		return fmt.Errorf("mention event has no channel")
	}
	if strings.TrimSpace(e.EventTimestamp) == "" {
		return fmt.Errorf("mention event has no event timestamp")
	}
	return nil
}

// Reply is the message posted back into the mention's thread
type Reply struct {
	ChannelID       string
	ThreadTimestamp string
	Text            string
}

// StripLeadingMention removes the first leading <@...> token, if any, and trims whitespace.
// Only one token is removed: "<@U1><@U2> hi" becomes "<@U2> hi".
func StripLeadingMention(text string) string {
	return strings.TrimSpace(leadingMention.ReplaceAllLiteralString(text, ""))
}

// BuildReply derives the threaded greeting for an event
func BuildReply(ev Event) Reply {
	return Reply{
		ChannelID:       ev.ChannelID,
		ThreadTimestamp: ev.EventTimestamp,
		Text:            Greeting + StripLeadingMention(ev.RawText),
	}
}
