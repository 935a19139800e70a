// Package fakebackend provides an in-memory backend.Runtime with fully
// deterministic behavior for tests. Models tokenize by whitespace with a
// stable per-runtime vocabulary, contexts emit logits that follow a
// scripted token sequence, and every decode verifies that slot positions
// stay contiguous with the tokens already held in the cache.
package fakebackend

import (
	"fmt"
	"strings"
	"sync"

	"github.com/RishiAhuja/android-llama-inference/internal/backend"
)

// EOGToken is the end-of-generation token every fake model recognizes.
const EOGToken backend.Token = 2

const vocabSize = 512

// Fake implements backend.Runtime. The zero value is not usable; call New.
type Fake struct {
	mu sync.Mutex

	// Failure toggles, checked at the corresponding call site.
	FailInit    bool
	FailLoad    bool
	FailContext bool
	FailDecode  bool

	// Script is the token sequence generation follows: after each decode
	// the context's logits select the next scripted token. When the
	// script runs out the logits select EOGToken.
	Script []backend.Token

	// ForceEOG makes every logit readout select EOGToken immediately.
	ForceEOG bool

	// Template, when set, is reported as the model's chat template.
	Template string

	InitCount int
	FreeCount int

	dict   map[string]backend.Token
	pieces map[backend.Token]string
	nextID backend.Token
}

// New returns a fake runtime with an empty vocabulary.
func New() *Fake {
	return &Fake{
		dict:   make(map[string]backend.Token),
		pieces: make(map[backend.Token]string),
		nextID: 100,
	}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailInit {
		return fmt.Errorf("fake: init failed")
	}
	f.InitCount++
	return nil
}

func (f *Fake) Free() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FreeCount++
}

// Active reports whether the runtime is currently initialized, judged by
// the init/free counters.
func (f *Fake) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.InitCount > f.FreeCount
}

// TokenFor returns the stable token id for a word, assigning one if the
// word has not been seen. Tests use it to build scripts and expectations.
func (f *Fake) TokenFor(word string) backend.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenForLocked(word)
}

func (f *Fake) tokenForLocked(word string) backend.Token {
	if t, ok := f.dict[word]; ok {
		return t
	}
	t := f.nextID
	f.nextID++
	f.dict[word] = t
	f.pieces[t] = word
	return t
}

// ScriptWords sets Script from whitespace-separated words, assigning
// vocabulary entries as needed.
func (f *Fake) ScriptWords(words ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Script = f.Script[:0]
	for _, w := range words {
		f.Script = append(f.Script, f.tokenForLocked(w))
	}
}

func (f *Fake) LoadModel(path string, opts backend.ModelOptions) (backend.Model, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailLoad {
		return nil, fmt.Errorf("fake: load failed for %s", path)
	}
	return &fakeModel{rt: f, path: path, gpuLayers: opts.GPULayers}, nil
}

func (f *Fake) NewContext(m backend.Model, opts backend.ContextOptions) (backend.Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailContext {
		return nil, fmt.Errorf("fake: context allocation failed")
	}
	fm, ok := m.(*fakeModel)
	if !ok {
		return nil, fmt.Errorf("fake: foreign model")
	}
	return &fakeContext{rt: f, model: fm, window: opts.ContextWindow}, nil
}

type fakeModel struct {
	rt        *Fake
	path      string
	gpuLayers int
	closed    bool
}

func (m *fakeModel) Desc() string   { return "fake model " + m.path }
func (m *fakeModel) VocabSize() int { return vocabSize }
func (m *fakeModel) GPULayers() int { return m.gpuLayers }
func (m *fakeModel) Close()         { m.closed = true }

func (m *fakeModel) ChatTemplate() string {
	m.rt.mu.Lock()
	defer m.rt.mu.Unlock()
	return m.rt.Template
}

func (m *fakeModel) ApplyChatTemplate(template, user string, addAssistant bool) (string, error) {
	if template == "" {
		return "", fmt.Errorf("fake: empty template")
	}
	out := "<user>" + user + "</user>"
	if addAssistant {
		out += "<assistant>"
	}
	return out, nil
}

func (m *fakeModel) Tokenize(text string, addSpecial bool) ([]backend.Token, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, fmt.Errorf("fake: nothing to tokenize")
	}
	m.rt.mu.Lock()
	defer m.rt.mu.Unlock()
	tokens := make([]backend.Token, 0, len(words)+1)
	if addSpecial {
		tokens = append(tokens, 1) // BOS
	}
	for _, w := range words {
		tokens = append(tokens, m.rt.tokenForLocked(w))
	}
	return tokens, nil
}

func (m *fakeModel) TokenToPiece(t backend.Token) string {
	m.rt.mu.Lock()
	defer m.rt.mu.Unlock()
	if p, ok := m.rt.pieces[t]; ok {
		return " " + p
	}
	return ""
}

func (m *fakeModel) IsEOG(t backend.Token) bool { return t == EOGToken }

type fakeContext struct {
	rt     *Fake
	model  *fakeModel
	window int

	kvLen  int // tokens currently held, mirrors the caller's cursor
	cursor int // position in the runtime script
	closed bool
}

// Decode checks that staged positions continue exactly where the cache
// ends, then admits the tokens. A position gap means the caller's cursor
// bookkeeping drifted from the cache, which is the bug class this fake
// exists to catch.
func (c *fakeContext) Decode(b *backend.Batch) error {
	c.rt.mu.Lock()
	defer c.rt.mu.Unlock()
	if c.closed {
		return fmt.Errorf("fake: context closed")
	}
	if c.rt.FailDecode {
		return fmt.Errorf("fake: decode failed")
	}
	pos := b.Pos()
	for i := 0; i < b.Len(); i++ {
		if int(pos[i]) != c.kvLen+i {
			return fmt.Errorf("fake: slot %d has position %d, cache ends at %d", i, pos[i], c.kvLen)
		}
	}
	if c.kvLen+b.Len() > c.window {
		return fmt.Errorf("fake: context window exceeded")
	}
	c.kvLen += b.Len()
	return nil
}

// Logits selects the next scripted token via a one-hot distribution, or
// EOGToken once the script is exhausted (or when ForceEOG is set).
func (c *fakeContext) Logits() ([]float32, error) {
	c.rt.mu.Lock()
	defer c.rt.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("fake: context closed")
	}
	next := EOGToken
	if !c.rt.ForceEOG && c.cursor < len(c.rt.Script) {
		next = c.rt.Script[c.cursor]
		c.cursor++
	}
	logits := make([]float32, vocabSize)
	for i := range logits {
		logits[i] = -10
	}
	logits[next] = 10
	return logits, nil
}

// Clear drops the cache and rewinds the script so a repeated conversation
// reproduces the same output.
func (c *fakeContext) Clear() {
	c.rt.mu.Lock()
	defer c.rt.mu.Unlock()
	c.kvLen = 0
	c.cursor = 0
}

func (c *fakeContext) Close() {
	c.rt.mu.Lock()
	defer c.rt.mu.Unlock()
	c.closed = true
}
