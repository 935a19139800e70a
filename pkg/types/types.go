package types

// Model represents a discoverable or loadable LLM model on disk.
type Model struct {
	// Stable identifier for the model.
	ID string `json:"id" example:"gemma-2b-q4"`
	// Human-friendly name.
	Name string `json:"name" example:"Gemma 2B (Q4)"`
	// Absolute path to the model file on disk.
	Path string `json:"path" example:"/home/user/models/gemma-2b-it.Q4_K_M.gguf"`
	// Quantization level or variant string.
	Quant string `json:"quant,omitempty" example:"Q4_K_M"`
	// Optional family (e.g., gemma, llama, mistral).
	Family string `json:"family,omitempty" example:"gemma"`
}
