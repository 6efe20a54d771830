package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tdvu/bookstore-agent/logging"
)

const correctiveNote = "\n\nYour previous reply was not valid JSON. Respond again with ONLY a single valid JSON object, no prose, no code fences."

// Client wraps a Completer with strict JSON decoding. A malformed reply is
// retried with a corrective note appended to the prompt, up to Retries extra
// attempts, before the error is surfaced to the caller.
type Client struct {
	completer Completer
	retries   int
	logger    logging.Logger
}

// ClientOptions configure a Client.
type ClientOptions struct {
	// Retries is the number of corrective re-prompts after a malformed
	// reply. The first attempt is not counted.
	Retries int

	Logger logging.Logger
}

// NewClient wraps completer with JSON decoding and bounded retries.
func NewClient(completer Completer, optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{Retries: 2, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{completer: completer, retries: opts.Retries, logger: opts.Logger}
}

// Complete passes the request straight through to the backend.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	return c.completer.Complete(ctx, req)
}

// CompleteJSON generates a completion and decodes it into out. Code fences
// and surrounding prose are tolerated; anything that still fails to decode
// triggers a corrective re-prompt.
func (c *Client) CompleteJSON(ctx context.Context, req Request, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		attemptReq := req
		if attempt > 0 {
			attemptReq.User = req.User + correctiveNote
		}
		raw, err := c.completer.Complete(ctx, attemptReq)
		if err != nil {
			return fmt.Errorf("completion: %w", err)
		}
		payload := ExtractJSON(raw)
		if payload == "" {
			lastErr = fmt.Errorf("completion: no JSON object in reply")
			c.logger.Warn("malformed completion reply", "attempt", attempt, "error", lastErr)
			continue
		}
		if err := json.Unmarshal([]byte(payload), out); err != nil {
			lastErr = fmt.Errorf("completion: decode reply: %w", err)
			c.logger.Warn("malformed completion reply", "attempt", attempt, "error", err)
			continue
		}
		return nil
	}
	return lastErr
}

// ExtractJSON pulls the outermost JSON object out of a model reply, stripping
// markdown code fences and any prose around it. Returns "" when no object is
// present.
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
