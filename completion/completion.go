package completion

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tdvu/bookstore-agent/logging"
)

// Backend names a completion provider.
const (
	BackendAuto      = "auto"
	BackendOpenAI    = "openai"
	BackendOllama    = "ollama"
	BackendAnthropic = "anthropic"
)

// ErrNoBackend is returned when auto-detection finds no usable provider.
var ErrNoBackend = errors.New("completion: no backend available")

// Request is a single-turn generation request. Conversation history and any
// retrieved context are rendered into User by the caller.
type Request struct {
	System string
	User   string
}

// Completer generates a completion for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Options configure backend construction.
type Options struct {
	// Model is the model identifier for the chosen backend.
	Model string

	// BaseURL overrides the provider endpoint. Required for Ollama
	// (default http://localhost:11434), optional for the others.
	BaseURL string

	// APIKey authenticates against hosted providers.
	APIKey string

	Logger logging.Logger
}

// New constructs the named backend. BackendAuto probes a local Ollama first
// and falls back to whichever hosted provider has an API key configured.
func New(ctx context.Context, backend string, optFns ...func(o *Options)) (Completer, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	switch backend {
	case BackendOpenAI:
		return newOpenAI(opts), nil
	case BackendAnthropic:
		return newAnthropic(opts), nil
	case BackendOllama:
		return newOllama(opts), nil
	case BackendAuto, "":
		return autodetect(ctx, opts)
	}
	return nil, fmt.Errorf("completion: unknown backend %q", backend)
}

// autodetect runs once at construction; the chosen backend is used for the
// lifetime of the process rather than re-probed per call.
func autodetect(ctx context.Context, opts Options) (Completer, error) {
	ollama := newOllama(opts)
	if ollama.Ping(ctx) {
		opts.Logger.Info("completion backend detected", "backend", BackendOllama, "base_url", ollama.baseURL)
		return ollama, nil
	}
	if opts.APIKey != "" || os.Getenv("OPENAI_API_KEY") != "" {
		opts.Logger.Info("completion backend detected", "backend", BackendOpenAI)
		return newOpenAI(opts), nil
	}
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		opts.Logger.Info("completion backend detected", "backend", BackendAnthropic)
		return newAnthropic(opts), nil
	}
	return nil, ErrNoBackend
}
