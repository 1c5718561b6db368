// Package llm provides a client for OpenAI-compatible chat completion APIs.
//
// The summarization stage uses it to build outlines and briefs, and the
// digest stage uses it to translate briefs into the reading language.
//
// # Configuration
//
// Requires api_key; base_url defaults to https://api.openai.com/v1 and the
// request is posted to <base_url>/chat/completions. Models are chosen per
// call so one client serves both summarization and translation.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty replies, and network
// timeouts with exponential backoff (base 1s, max 10s, 3 attempts by default).
// Context cancellation aborts retries immediately.
//
// # Errors
//
// Failures carry internal/services markers: 401/403/404 are
// ErrConfiguration, 400/413 are ErrValidation, timeouts are ErrTimeout, and
// everything else is ErrTransient.
package llm
