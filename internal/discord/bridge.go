// Package discord relays Discord messages to the engine and posts replies
package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/vthunder/nova/internal/engine"
	"github.com/vthunder/nova/internal/logging"
	"github.com/vthunder/nova/internal/session"
)

const (
	maxMessageLen = 2000 // Discord's limit on one message
	sendAttempts  = 3
)

// Config holds Discord connection settings
type Config struct {
	Token     string
	ChannelID string // only this channel is answered when set
	Timeout   time.Duration
}

// Handler processes one utterance for a session
type Handler interface {
	Handle(ctx context.Context, sess *session.Session, text string) engine.Result
}

// Sender posts a message to a channel
type Sender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Bridge keeps one session per channel
type Bridge struct {
	dg       *discordgo.Session
	send     Sender
	handler  Handler
	sessions *session.Store
	cfg      Config
	botID    string

	retryDelay time.Duration
}

// New creates a bridge; Start connects it
func New(cfg Config, h Handler, sessions *session.Store) (*Bridge, error) {
	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	b := &Bridge{dg: dg, send: dg, handler: h, sessions: sessions, cfg: cfg, retryDelay: time.Second}
	dg.AddHandler(b.onMessage)
	dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
	return b, nil
}

// Start connects to Discord and begins answering
func (b *Bridge) Start() error {
	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	b.botID = b.dg.State.User.ID
	logging.Info("discord", "connected as %s", b.dg.State.User.Username)
	return nil
}

// Stop disconnects
func (b *Bridge) Stop() error {
	return b.dg.Close()
}

func (b *Bridge) onMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}
	b.handle(m.ChannelID, m.Author.ID, m.Content)
}

// handle answers one message. Channels map one-to-one onto sessions.
func (b *Bridge) handle(channelID, authorID, content string) {
	if authorID == b.botID || (b.cfg.ChannelID != "" && channelID != b.cfg.ChannelID) {
		return
	}
	text := strings.TrimSpace(content)
	if text == "" {
		return
	}
	logging.Debug("discord", "%s: %s", channelID, logging.Truncate(text, 50))

	sess := b.sessions.Get("discord-" + channelID)
	sess.Lock()
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.Timeout)
	result := b.handler.Handle(ctx, sess, text)
	cancel()
	sess.Unlock()

	if result.Message == "" {
		return
	}
	for _, part := range chunk(result.Message, maxMessageLen) {
		if err := b.deliver(channelID, part); err != nil {
			logging.Warn("discord", "send to %s: %v", channelID, err)
			return
		}
	}
}

// deliver sends one message, retrying server-side failures
func (b *Bridge) deliver(channelID, content string) error {
	var err error
	for attempt := 0; attempt < sendAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(b.retryDelay * time.Duration(attempt))
		}
		if _, err = b.send.ChannelMessageSend(channelID, content); err == nil || !retryable(err) {
			return err
		}
	}
	return err
}

// retryable reports whether a send might succeed later. Discord 4xx
// responses (bad channel, missing permission, rate limit) will not.
func retryable(err error) bool {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		return rest.Response.StatusCode >= 500
	}
	return true
}

// chunk splits s into pieces of at most n runes, preferring line breaks
func chunk(s string, n int) []string {
	var parts []string
	for utf8.RuneCountInString(s) > n {
		cut := byteOffset(s, n)
		if nl := strings.LastIndex(s[:cut], "\n"); nl > 0 {
			cut = nl + 1
		}
		parts = append(parts, strings.TrimRight(s[:cut], "\n"))
		s = s[cut:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}

// byteOffset returns the byte index just past the first n runes of s
func byteOffset(s string, n int) int {
	i := 0
	for off := range s {
		if i == n {
			return off
		}
		i++
	}
	return len(s)
}
