// Package completion abstracts the text-generation backend behind a single
// Completer interface.
//
// Backends:
//
//   - OpenAI-compatible (openai-go), which also serves Ollama's /v1 endpoint
//     and any proxy speaking the chat-completions API
//   - Anthropic (anthropic-sdk-go)
//   - native Ollama (/api/chat with JSON output forced)
//
// New with BackendAuto probes a local Ollama first, then falls back to
// whichever API key the environment provides. Client layers strict-JSON
// decoding with bounded corrective retries on top of any backend.
package completion
