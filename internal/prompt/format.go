// Package prompt renders a raw user message into the chat-formatted text
// a model expects. Models shipping a chat template in their metadata get
// that template applied through the backend; anything else falls back to
// the Gemma-style turn markers the bundled models use.
package prompt

import "github.com/RishiAhuja/android-llama-inference/internal/backend"

// Formatter renders user turns for one model. It caches the template
// lookup, which is stable for the model's lifetime.
type Formatter struct {
	model    backend.Model
	template string
	probed   bool
}

// NewFormatter returns a formatter bound to m.
func NewFormatter(m backend.Model) *Formatter {
	return &Formatter{model: m}
}

// UserTurn formats a user message and opens the assistant turn, so the
// model's next tokens are the reply.
func (f *Formatter) UserTurn(message string) string {
	if !f.probed {
		f.template = f.model.ChatTemplate()
		f.probed = true
	}
	if f.template != "" {
		out, err := f.model.ApplyChatTemplate(f.template, message, true)
		if err == nil && out != "" {
			return out
		}
		// Template rendering failed, fall through to the fixed format.
	}
	return "<start_of_turn>user\n" + message + "<end_of_turn>\n<start_of_turn>model\n"
}
