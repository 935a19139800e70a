// Package session provides lifecycle, admission, and generation coordination
// for inference sessions. It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: Config and package defaults; New applies defaults.
//   - types.go: internal state types (State, Session, usage accounting).
//   - errors.go: error types and helpers (IsBusy, IsNotLoaded, ...).
//   - load.go: model loading, backend refcounting, budget admission.
//   - predict.go: the generation loop (prefill, sample, feedback decode).
//   - conversation.go: reset and unload.
//   - admission.go: per-session queueing and generation admission.
//   - events.go / eventpub_memory.go: lifecycle event publication.
//   - metrics.go: Prometheus collectors for loads, sessions, tokens.
//   - status.go: status reporting for the HTTP layer.
//   - sanity.go: runtime dependency checks.
//
// A session owns exactly one loaded model, one inference context (the
// key/value cache plus a reusable token batch), one sampler chain, and the
// conversation token history. The process-wide compute runtime is reference
// counted: it initializes when the first session loads and is freed when
// the last one unloads.
//
// External packages should treat this package as the orchestration layer and
// use public methods only (New, Load, Predict, Reset, Unload,
// Status, ListModels). Internal types are subject to change.
package session
