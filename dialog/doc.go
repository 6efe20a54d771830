// Package dialog holds the per-session conversational state: the current
// phase, the order slots collected so far and the slot currently being asked
// for.
//
// State lives behind the narrow StateStore interface so a single-process
// deployment can keep it in memory while a multi-instance one backs it with
// Redis. Callers mutate the state returned by Get and persist it with Save;
// stores hand out deep copies, so an abandoned turn never leaks partial edits.
package dialog
