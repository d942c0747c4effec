// Package intent turns an utterance into structured actions by asking a
// language model with the user's context packed into the prompt.
package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vthunder/nova/internal/action"
	"github.com/vthunder/nova/internal/logging"
	"github.com/vthunder/nova/internal/session"
)

const defaultTimeout = 45 * time.Second

// ParseError means the model replied with something that is not an action.
// Raw is kept for logs and never shown to the user.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse model reply: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Outcome is a successful parse plus the exchange to append to history
type Outcome struct {
	Reply     action.Reply
	User      session.Message
	Assistant session.Message
}

// Parser asks the model to interpret utterances
type Parser struct {
	completer Completer
	timeout   time.Duration
}

// NewParser creates a parser; timeout <= 0 uses the default
func NewParser(c Completer, timeout time.Duration) *Parser {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Parser{completer: c, timeout: timeout}
}

// Parse interprets one utterance given the history and the user's context
func (p *Parser) Parse(ctx context.Context, history []session.Message, pc PromptContext, utterance string) (Outcome, error) {
	system := SystemPrompt(pc)
	user := session.Message{
		Role:    "user",
		Content: UserMessage(ScheduleDigest(pc.Upcoming, pc.Now.Location()), utterance),
	}
	msgs := append(append([]session.Message(nil), history...), user)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	text, err := p.completer.Complete(ctx, system, msgs)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return Outcome{}, err
		}
		return Outcome{}, &APIError{Err: err}
	}
	logging.Debug("intent", "model replied in %dms: %s", time.Since(start).Milliseconds(), logging.Truncate(text, 200))

	reply, err := action.Decode([]byte(ExtractJSON(text)))
	if err != nil {
		return Outcome{}, &ParseError{Raw: text, Err: err}
	}
	return Outcome{
		Reply:     reply,
		User:      user,
		Assistant: session.Message{Role: "assistant", Content: text},
	}, nil
}

// ExtractJSON strips markdown code fences and any prose around the JSON value
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		// skip the fence and optional language tag
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return s
	}
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
