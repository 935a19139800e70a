package session

import "fmt"

// modelLoadError signals an unreadable or unloadable model file.
type modelLoadError struct{ msg string }

func (e modelLoadError) Error() string { return "model load failed: " + e.msg }

// ErrModelLoad constructs a modelLoadError.
func ErrModelLoad(msg string) error { return modelLoadError{msg: msg} }

// IsModelLoad reports whether err is a model load failure.
func IsModelLoad(err error) bool {
	_, ok := err.(modelLoadError)
	return ok
}

// contextAllocError signals that the backend could not allocate the
// generation context or that the memory budget would be exceeded.
type contextAllocError struct{ msg string }

func (e contextAllocError) Error() string { return "context allocation failed: " + e.msg }

// ErrContextAlloc constructs a contextAllocError.
func ErrContextAlloc(msg string) error { return contextAllocError{msg: msg} }

// IsContextAlloc reports whether err is a context allocation failure.
func IsContextAlloc(err error) bool {
	_, ok := err.(contextAllocError)
	return ok
}

// tokenizeError signals a prompt the tokenizer rejected.
type tokenizeError struct{ msg string }

func (e tokenizeError) Error() string { return "failed to tokenize prompt: " + e.msg }

// IsTokenize reports whether err is a tokenization failure.
func IsTokenize(err error) bool {
	_, ok := err.(tokenizeError)
	return ok
}

// decodeError signals a backend failure mid-generation.
type decodeError struct{ msg string }

func (e decodeError) Error() string { return "decode failed: " + e.msg }

// IsDecode reports whether err is a mid-generation backend failure.
func IsDecode(err error) bool {
	_, ok := err.(decodeError)
	return ok
}

// contextOverflowError signals a prompt that cannot fit in the context
// window at all. Overflow reached during generation is a soft stop, not
// this error.
type contextOverflowError struct{ need, window int }

func (e contextOverflowError) Error() string {
	return fmt.Sprintf("prompt exceeds context window: need %d of %d tokens", e.need, e.window)
}

// IsContextOverflow reports whether err indicates an oversized prompt.
func IsContextOverflow(err error) bool {
	_, ok := err.(contextOverflowError)
	return ok
}

// notLoadedError signals predict on a handle that has no loaded model,
// for example after free or with a stale session id.
type notLoadedError struct{ id string }

func (e notLoadedError) Error() string { return "model not loaded: " + e.id }

// IsNotLoaded reports whether err indicates a dead or unknown handle.
func IsNotLoaded(err error) bool {
	_, ok := err.(notLoadedError)
	return ok
}

// sessionNotFoundError signals a session id that is not in the arena.
type sessionNotFoundError struct{ id string }

func (e sessionNotFoundError) Error() string { return "session not found: " + e.id }

// ErrSessionNotFound constructs a sessionNotFoundError.
func ErrSessionNotFound(id string) error { return sessionNotFoundError{id: id} }

// IsSessionNotFound reports whether the error indicates a missing session id.
func IsSessionNotFound(err error) bool {
	_, ok := err.(sessionNotFoundError)
	return ok
}

// busyError signals queue timeout/overflow for 429 mapping.
type busyError struct{ id string }

func (e busyError) Error() string { return "session busy: " + e.id }

// IsBusy reports whether err indicates backpressure (return 429).
func IsBusy(err error) bool {
	_, ok := err.(busyError)
	return ok
}

// modelNotFoundError signals a requested model id absent from the registry.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}
