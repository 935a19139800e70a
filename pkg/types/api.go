package types

// LoadRequest asks the server to load a model into a new session.
type LoadRequest struct {
	// Registry model id to load. Mutually exclusive with Path.
	// example: gemma-2b-q4
	Model string `json:"model,omitempty" example:"gemma-2b-q4"`
	// Absolute model file path. Mutually exclusive with Model.
	Path string `json:"path,omitempty" example:"/home/user/models/gemma-2b-it.Q4_K_M.gguf"`
	// Offload transformer layers to the GPU backend when available.
	// example: true
	UseGPU bool `json:"use_gpu,omitempty" example:"true"`
}

// LoadResponse returns the opaque handle of a freshly loaded session.
type LoadResponse struct {
	// Opaque session handle for subsequent predict/reset/unload calls.
	// example: 1b4e28ba-2fa1-11d2-883f-0016d3cca427
	Session string `json:"session" example:"1b4e28ba-2fa1-11d2-883f-0016d3cca427"`
	// Model metadata the session was loaded from.
	Model Model `json:"model"`
	// Whether GPU layer offload is active for this session.
	GPU bool `json:"gpu"`
}

// PredictRequest carries a single user prompt for a loaded session.
type PredictRequest struct {
	// Required raw user utterance.
	// example: Write a haiku about the ocean.
	Prompt string `json:"prompt" example:"Write a haiku about the ocean."`
	// If true, stream tokens as NDJSON lines before the final summary line.
	Stream bool `json:"stream,omitempty" example:"true"`
	// Maximum number of new tokens to generate. 0 uses the server default.
	// example: 48
	MaxTokens int `json:"max_tokens,omitempty" example:"48"`
}

// PredictResponse is the non-streaming result of a predict call.
type PredictResponse struct {
	// Generated text, truncated at the first stop marker.
	Text string `json:"text"`
	// Why generation stopped: eog, stop_marker, budget, context_full.
	// example: eog
	FinishReason string `json:"finish_reason" example:"eog"`
	// Token accounting for this call.
	Usage Usage `json:"usage"`
}

// Usage contains token accounting for one predict call.
type Usage struct {
	PromptTokens    int `json:"prompt_tokens"`
	GeneratedTokens int `json:"generated_tokens"`
	TotalTokens     int `json:"total_tokens"`
}

// SessionStatus summarizes a live session for GET /sessions.
type SessionStatus struct {
	// Opaque session handle.
	Session string `json:"session"`
	// Model id this session serves.
	ModelID string `json:"model_id"`
	// Lifecycle state: unloaded, loading, idle, generating.
	// example: idle
	State string `json:"state" example:"idle"`
	// Number of tokens committed to the key/value cache.
	// example: 117
	PositionCursor int `json:"position_cursor" example:"117"`
	// Configured context window size in tokens.
	// example: 2048
	ContextWindow int `json:"context_window" example:"2048"`
	// Whether GPU layer offload is active.
	GPU bool `json:"gpu"`
	// Last time this session served a request (unix seconds).
	LastUsed int64 `json:"last_used_unix"`
	// Estimated resident memory in MB (model file size based).
	EstMemoryMB int `json:"est_memory_mb"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Live sessions.
	Sessions []SessionStatus `json:"sessions"`
	// Memory budget in MB across all sessions (0 = unlimited).
	BudgetMB int `json:"budget_mb"`
	// Estimated used memory in MB.
	UsedMB int `json:"used_est_mb"`
	// Reserved memory margin in MB.
	MarginMB int `json:"margin_mb"`
	// Name of the compute backend runtime (e.g., yzma, stub).
	Backend string `json:"backend"`
	// Whether the process-wide backend runtime is currently initialized.
	BackendActive bool `json:"backend_active"`
	// Uptime of the server in seconds.
	UptimeSeconds int64 `json:"uptime_seconds"`
	// Total number of model loads since start.
	LoadsTotal uint64 `json:"loads_total"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: failed to tokenize prompt
	Error string `json:"error" example:"failed to tokenize prompt"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
