package slackbot

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/slack-go/slack"
)

const testSigningSecret = "8f742231b10e8888abcd99yyyzzz85a5"

type postedMessage struct {
	Channel  string
	Text     string
	ThreadTS string
}

// fakeSender records the channels PostMessageContext was called with
type fakeSender struct {
	mu    sync.Mutex
	calls []string
	err   error
	panicValue any
}

func (f *fakeSender) PostMessageContext(_ context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, channelID)
	if f.panicValue != nil {
		panic(f.panicValue)
	}
	if f.err != nil {
		return "", "", f.err
	}
	return channelID, "1700000000.999999", nil
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// slackAPIStub serves chat.postMessage and records what the bot posted
type slackAPIStub struct {
	server *httptest.Server
	mu     sync.Mutex
	posted []postedMessage
	fail   string
}

func newSlackAPIStub(t *testing.T) *slackAPIStub {
	t.Helper()
	stub := &slackAPIStub{}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat.postMessage" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		stub.mu.Lock()
		stub.posted = append(stub.posted, postedMessage{
			Channel:  r.FormValue("channel"),
			Text:     r.FormValue("text"),
			ThreadTS: r.FormValue("thread_ts"),
		})
		fail := stub.fail
		stub.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if fail != "" {
			fmt.Fprintf(w, `{"ok":false,"error":%q}`, fail)
			return
		}
		fmt.Fprintf(w, `{"ok":true,"channel":%q,"ts":"1700000000.000200"}`, r.FormValue("channel"))
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *slackAPIStub) setFail(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = code
}

func (s *slackAPIStub) client() *slack.Client {
	return slack.New("xoxb-test", slack.OptionAPIURL(s.server.URL+"/"))
}

func (s *slackAPIStub) messages() []postedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]postedMessage(nil), s.posted...)
}

func signedHeaders(t *testing.T, secret string, body []byte, at time.Time) http.Header {
	t.Helper()
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte("v0:" + ts + ":"))
	_, _ = mac.Write(body)

	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("X-Slack-Request-Timestamp", ts)
	h.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return h
}

// syncBuffer lets tests read log output written from server goroutines
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func bufferLogger() (*log.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return log.New(buf, "", 0), buf
}

func appMentionBody(channel, text, eventTS string) []byte {
	return []byte(fmt.Sprintf(`{
	"token": "legacy",
	"team_id": "T1",
	"api_app_id": "A1",
	"type": "event_callback",
	"event_id": "Ev1",
	"event_time": 1700000000,
	"event": {
		"type": "app_mention",
		"user": "U2",
		"text": %q,
		"ts": %q,
		"channel": %q,
		"event_ts": %q
	}
}`, text, eventTS, channel, eventTS))
}
