// Package backend abstracts the native inference library underneath a
// session. The concrete runtime (llama.cpp via yzma purego bindings) is
// compiled in with `-tags=yzma`; default builds get a stub that refuses to
// run inference, keeping CI FFI-free. Tests use the fakebackend package.
package backend

// Token is a vocabulary index produced by the tokenizer and consumed by
// decode calls.
type Token = int32

// ModelOptions configures weight loading.
type ModelOptions struct {
	// GPULayers is the number of transformer layers offloaded to the GPU
	// backend. 0 = CPU-only. The driver may cap this below the requested
	// value; the capped value is what the runtime reports, not an error.
	GPULayers int
	// UseMmap maps the weight file instead of copying it into memory.
	UseMmap bool
}

// ContextOptions sizes the per-session generation state.
type ContextOptions struct {
	// ContextWindow is the maximum number of tokens (prompt + generated,
	// cumulative across turns) the context can hold.
	ContextWindow int
	// BatchCapacity is the maximum number of tokens per decode call.
	BatchCapacity int
	// Threads is the CPU thread count for single-token decode.
	Threads int
	// BatchThreads is the CPU thread count for batch decode. 0 = Threads.
	BatchThreads int
}

// Runtime is the process-wide compute backend. Init/Free are reference
// counted by the session manager: Init is called before the first model
// load and Free after the last session unloads. A runtime must support
// being initialized again after Free.
type Runtime interface {
	// Name identifies the runtime implementation (e.g. "yzma", "stub").
	Name() string
	// Init performs process-wide initialization (library load, device
	// enumeration). Idempotent until the matching Free.
	Init() error
	// Free tears the backend down.
	Free()
	// LoadModel loads model weights from a file path.
	LoadModel(path string, opts ModelOptions) (Model, error)
	// NewContext allocates generation state bound to a loaded model.
	NewContext(m Model, opts ContextOptions) (Context, error)
}

// Model is an immutable loaded weight set plus its vocabulary.
// Safe for shared read access; owned by exactly one session in practice.
type Model interface {
	// Desc returns a human-readable model description.
	Desc() string
	// VocabSize returns the number of vocabulary entries.
	VocabSize() int
	// GPULayers reports the effective GPU layer offload count after any
	// driver capping.
	GPULayers() int
	// ChatTemplate returns the model's built-in chat template, or "" when
	// the model does not carry one.
	ChatTemplate() string
	// ApplyChatTemplate renders a single user message through the given
	// template, appending an assistant-turn opening marker when
	// addAssistant is set.
	ApplyChatTemplate(template, user string, addAssistant bool) (string, error)
	// Tokenize converts text to token ids, inserting special tokens when
	// addSpecial is set.
	Tokenize(text string, addSpecial bool) ([]Token, error)
	// TokenToPiece decodes a single token id back to its text piece.
	TokenToPiece(t Token) string
	// IsEOG reports whether t is an end-of-generation token (end of
	// sequence or end of turn).
	IsEOG(t Token) bool
	// Close releases the loaded weights.
	Close()
}

// Context is mutable per-session generation state: the key/value cache and
// the decode entry point. Not safe for concurrent use; the owning session
// serializes access.
type Context interface {
	// Decode processes the staged batch, extending the key/value cache.
	// Slot positions must be contiguous with the cache tail.
	Decode(b *Batch) error
	// Logits returns the logits vector for the last emit-logits slot of
	// the previous Decode call. The slice is valid until the next Decode.
	Logits() ([]float32, error)
	// Clear invalidates the entire key/value cache.
	Clear()
	// Close releases the context.
	Close()
}
