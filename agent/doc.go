// Package agent is the orchestration pipeline: it takes one utterance plus
// the session's dialogue state and produces a reply and a state transition.
//
// Deterministic paths run first and never touch the completion service:
//
//   - confirmation handling (affirmative tokens, edit requests, buy-more)
//   - answers to the prompt the assistant just asked
//   - regex extraction of quantities and phone numbers
//
// Only genuinely ambiguous turns reach the model, through a two-stage loop:
// slot resolution (intent + slot JSON merged into the session) and, when the
// shortcuts do not resolve the turn, a bounded plan/execute/respond cycle over
// a closed tool set validated against their schemas.
package agent
