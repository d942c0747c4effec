package discord

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/vthunder/nova/internal/engine"
	"github.com/vthunder/nova/internal/session"
)

type fakeHandler struct {
	reply    string
	sessions []string
}

func (f *fakeHandler) Handle(ctx context.Context, sess *session.Session, text string) engine.Result {
	f.sessions = append(f.sessions, sess.ID)
	return engine.Result{Success: true, Message: f.reply}
}

type fakeSender struct {
	sent  []string
	fails []error // returned in order before succeeding
}

func (f *fakeSender) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if len(f.fails) > 0 {
		err := f.fails[0]
		f.fails = f.fails[1:]
		return nil, err
	}
	f.sent = append(f.sent, content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func newTestBridge(h Handler, s *fakeSender, channel string) *Bridge {
	return &Bridge{
		send:     s,
		handler:  h,
		sessions: session.NewStore(time.Hour),
		cfg:      Config{ChannelID: channel, Timeout: time.Second},
		botID:    "bot",
	}
}

func TestHandleSessionPerChannel(t *testing.T) {
	h := &fakeHandler{reply: "Done."}
	s := &fakeSender{}
	b := newTestBridge(h, s, "")

	b.handle("c1", "user", "lunch at noon")
	b.handle("c2", "user", "what's on today")
	b.handle("c1", "user", "yes")

	want := []string{"discord-c1", "discord-c2", "discord-c1"}
	if strings.Join(h.sessions, ",") != strings.Join(want, ",") {
		t.Errorf("sessions = %v, want %v", h.sessions, want)
	}
	if len(s.sent) != 3 {
		t.Errorf("sent %d messages", len(s.sent))
	}
}

func TestHandleIgnores(t *testing.T) {
	h := &fakeHandler{reply: "Done."}
	b := newTestBridge(h, &fakeSender{}, "c1")

	b.handle("c1", "bot", "my own reply")
	b.handle("c2", "user", "wrong channel")
	b.handle("c1", "user", "   ")
	if len(h.sessions) != 0 {
		t.Errorf("handled %d messages, want 0", len(h.sessions))
	}
}

func TestChunk(t *testing.T) {
	long := strings.Repeat("a", 1500) + "\n" + strings.Repeat("b", 1500)
	parts := chunk(long, maxMessageLen)
	if len(parts) != 2 || parts[0] != strings.Repeat("a", 1500) || parts[1] != strings.Repeat("b", 1500) {
		t.Errorf("split at newline failed: %d parts", len(parts))
	}

	runes := strings.Repeat("é", 4500)
	parts = chunk(runes, maxMessageLen)
	if len(parts) != 3 {
		t.Fatalf("got %d parts", len(parts))
	}
	for _, p := range parts {
		if utf8.RuneCountInString(p) > maxMessageLen || !utf8.ValidString(p) {
			t.Errorf("bad part of %d runes", utf8.RuneCountInString(p))
		}
	}

	if got := chunk("short", maxMessageLen); len(got) != 1 || got[0] != "short" {
		t.Errorf("short message = %v", got)
	}
}

func TestDeliverRetries(t *testing.T) {
	serverErr := &discordgo.RESTError{Response: &http.Response{StatusCode: 502}}
	forbidden := &discordgo.RESTError{Response: &http.Response{StatusCode: 403}}

	s := &fakeSender{fails: []error{serverErr, errors.New("connection reset")}}
	b := newTestBridge(&fakeHandler{}, s, "")
	if err := b.deliver("c1", "hi"); err != nil || len(s.sent) != 1 {
		t.Errorf("transient failures should be retried: err=%v sent=%d", err, len(s.sent))
	}

	s = &fakeSender{fails: []error{forbidden}}
	b = newTestBridge(&fakeHandler{}, s, "")
	if err := b.deliver("c1", "hi"); err == nil || len(s.sent) != 0 {
		t.Errorf("4xx should not be retried: err=%v sent=%d", err, len(s.sent))
	}
}
