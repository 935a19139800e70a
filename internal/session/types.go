package session

import (
	"time"

	"github.com/RishiAhuja/android-llama-inference/internal/backend"
	"github.com/RishiAhuja/android-llama-inference/internal/prompt"
	"github.com/RishiAhuja/android-llama-inference/internal/sampling"
)

// State represents the lifecycle state of a session.
type State string

const (
	StateLoading    State = "loading"
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateDraining   State = "draining"
)

// Session owns one loaded model and its generation state. All fields are
// guarded by the manager mutex except during a generation, when the
// admission channel guarantees a single owner for ctx, batch, sampler, and
// the cursor.
type Session struct {
	ID       string
	ModelID  string
	State    State
	GPU      bool
	LastUsed time.Time
	EstMB    int

	model     backend.Model
	lctx      backend.Context
	batch     *backend.Batch
	sampler   *sampling.Chain
	formatter *prompt.Formatter

	// cursor counts the tokens currently represented in the cache. It
	// only moves forward inside a turn and only resets with the cache.
	cursor int

	// fresh marks the first turn after a reset; the cache is cleared and
	// the cursor zeroed before that turn's prompt is submitted.
	fresh bool

	// history is the conversation transcript, prompt and generated
	// tokens in order. Bookkeeping only; the cache is authoritative.
	history []backend.Token

	// Queueing primitives.
	genCh   chan struct{} // size 1: single in-flight generation
	queueCh chan struct{} // buffered: queue slots
}

// Result is the outcome of one predict call.
type Result struct {
	Text            string
	FinishReason    string
	PromptTokens    int
	GeneratedTokens int
}

// Finish reasons reported in Result.FinishReason.
const (
	FinishEOG         = "eog"
	FinishStopMarker  = "stop_marker"
	FinishBudget      = "budget"
	FinishContextFull = "context_full"
)
