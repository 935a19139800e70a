//go:build yzma

package backend

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hybridgroup/yzma/pkg/llama"
)

// yzmaRuntime drives llama.cpp through the yzma purego bindings. No CGO:
// the prebuilt ggml/llama shared libraries are loaded at Init from the
// directory named by INFERD_LLAMA_LIB (default ./lib/llama).
type yzmaRuntime struct {
	loaded bool
}

// NewRuntime returns the compute runtime for this build.
func NewRuntime() Runtime { return &yzmaRuntime{} }

func (r *yzmaRuntime) Name() string { return "yzma" }

func (r *yzmaRuntime) Init() error {
	if !r.loaded {
		libPath := os.Getenv("INFERD_LLAMA_LIB")
		if libPath == "" {
			libPath = "./lib/llama"
		}
		if abs, err := filepath.Abs(libPath); err == nil {
			libPath = abs
		}
		if err := llama.Load(libPath); err != nil {
			return fmt.Errorf("load llama libraries from %s: %w", libPath, err)
		}
		// Library stays loaded for the process lifetime; only the ggml
		// backend below is torn down on Free.
		r.loaded = true
	}
	llama.Init()
	return nil
}

func (r *yzmaRuntime) Free() {
	llama.BackendFree()
}

func (r *yzmaRuntime) LoadModel(path string, opts ModelOptions) (Model, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	mparams := llama.ModelDefaultParams()
	mparams.NGpuLayers = int32(opts.GPULayers)
	if opts.GPULayers > 0 && !llama.SupportsGpuOffload() {
		// Accepted degradation: the loaded libraries cannot offload, run
		// CPU-only instead of failing the load.
		mparams.NGpuLayers = 0
	}
	if opts.UseMmap {
		mparams.UseMmap = 1
	} else {
		mparams.UseMmap = 0
	}
	mdl, err := llama.ModelLoadFromFile(path, mparams)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &yzmaModel{
		model:     mdl,
		vocab:     llama.ModelGetVocab(mdl),
		gpuLayers: int(mparams.NGpuLayers),
	}, nil
}

func (r *yzmaRuntime) NewContext(m Model, opts ContextOptions) (Context, error) {
	ym, ok := m.(*yzmaModel)
	if !ok {
		return nil, fmt.Errorf("model was not loaded by this runtime")
	}
	cparams := llama.ContextDefaultParams()
	cparams.NCtx = uint32(opts.ContextWindow)
	cparams.NBatch = uint32(opts.BatchCapacity)
	if opts.Threads > 0 {
		cparams.NThreads = int32(opts.Threads)
	}
	if opts.BatchThreads > 0 {
		cparams.NThreadsBatch = int32(opts.BatchThreads)
	} else if opts.Threads > 0 {
		cparams.NThreadsBatch = int32(opts.Threads)
	}
	lctx, err := llama.InitFromModel(ym.model, cparams)
	if err != nil {
		return nil, fmt.Errorf("create context: %w", err)
	}
	return &yzmaContext{lctx: lctx, model: ym}, nil
}

type yzmaModel struct {
	model     llama.Model
	vocab     llama.Vocab
	gpuLayers int
}

func (m *yzmaModel) Desc() string   { return llama.ModelDesc(m.model) }
func (m *yzmaModel) VocabSize() int { return int(llama.VocabNTokens(m.vocab)) }
func (m *yzmaModel) GPULayers() int { return m.gpuLayers }
func (m *yzmaModel) Close()         { llama.ModelFree(m.model) }

func (m *yzmaModel) ChatTemplate() string {
	template := llama.ModelChatTemplate(m.model, "")
	if template == "" {
		template, _ = llama.ModelMetaValStr(m.model, "tokenizer.chat_template")
	}
	return template
}

func (m *yzmaModel) ApplyChatTemplate(template, user string, addAssistant bool) (string, error) {
	messages := []llama.ChatMessage{llama.NewChatMessage("user", user)}
	buf := make([]byte, 4096+2*len(user))
	n := llama.ChatApplyTemplate(template, messages, addAssistant, buf)
	if n <= 0 || int(n) > len(buf) {
		return "", fmt.Errorf("chat template rendering failed (rc=%d)", n)
	}
	return string(buf[:n]), nil
}

func (m *yzmaModel) Tokenize(text string, addSpecial bool) ([]Token, error) {
	tokens := llama.Tokenize(m.vocab, text, addSpecial, true)
	if len(tokens) == 0 && text != "" {
		return nil, fmt.Errorf("tokenization produced no tokens")
	}
	out := make([]Token, len(tokens))
	for i, t := range tokens {
		out[i] = Token(t)
	}
	return out, nil
}

func (m *yzmaModel) TokenToPiece(t Token) string {
	buf := make([]byte, 256)
	n := llama.TokenToPiece(m.vocab, llama.Token(t), buf, 0, true)
	if n <= 0 {
		return ""
	}
	return string(buf[:n])
}

func (m *yzmaModel) IsEOG(t Token) bool {
	return llama.VocabIsEOG(m.vocab, llama.Token(t))
}

type yzmaContext struct {
	lctx  llama.Context
	model *yzmaModel
}

// Decode submits the staged tokens in one llama batch. Session invariants
// guarantee slot positions are contiguous with the KV cache tail and that
// only the final slot emits logits, which matches llama's single-sequence
// batch semantics.
func (c *yzmaContext) Decode(b *Batch) error {
	if b.Len() == 0 {
		return nil
	}
	tokens := make([]llama.Token, b.Len())
	for i, t := range b.Tokens() {
		tokens[i] = llama.Token(t)
	}
	batch := llama.BatchGetOne(tokens)
	if _, err := llama.Decode(c.lctx, batch); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func (c *yzmaContext) Logits() ([]float32, error) {
	logits, err := llama.GetLogits(c.lctx, 1, c.model.VocabSize())
	if err != nil {
		return nil, fmt.Errorf("get logits: %w", err)
	}
	return logits, nil
}

func (c *yzmaContext) Clear() {
	llama.MemoryClear(llama.GetMemory(c.lctx), true)
}

func (c *yzmaContext) Close() {
	llama.Free(c.lctx)
}
