package prompt

import (
	"strings"
	"testing"

	"github.com/RishiAhuja/android-llama-inference/internal/backend"
	"github.com/RishiAhuja/android-llama-inference/internal/backend/fakebackend"
)

func TestUserTurnUsesModelTemplate(t *testing.T) {
	rt := fakebackend.New()
	rt.Template = "chatml"
	mdl, err := rt.LoadModel("m.gguf", backend.ModelOptions{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	f := NewFormatter(mdl)
	got := f.UserTurn("hello there")
	want := "<user>hello there</user><assistant>"
	if got != want {
		t.Fatalf("UserTurn = %q, want %q", got, want)
	}
}

func TestUserTurnFallbackFormat(t *testing.T) {
	rt := fakebackend.New()
	mdl, err := rt.LoadModel("m.gguf", backend.ModelOptions{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	f := NewFormatter(mdl)
	got := f.UserTurn("what is the capital of France")
	if !strings.HasPrefix(got, "<start_of_turn>user\n") {
		t.Errorf("missing user turn opener: %q", got)
	}
	if !strings.Contains(got, "what is the capital of France<end_of_turn>\n") {
		t.Errorf("message not closed: %q", got)
	}
	if !strings.HasSuffix(got, "<start_of_turn>model\n") {
		t.Errorf("assistant turn not opened: %q", got)
	}
}
