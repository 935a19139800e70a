package httpapi

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/RishiAhuja/android-llama-inference/internal/backend"
	"github.com/RishiAhuja/android-llama-inference/internal/backend/fakebackend"
	"github.com/RishiAhuja/android-llama-inference/internal/session"
)

// sessionError produces real typed errors from a throwaway manager, so the
// mapping is tested against the errors the service actually returns.
func sessionErrors(t *testing.T) map[string]error {
	t.Helper()
	m := session.New(fakebackend.New(), session.Config{})
	_, notFound := m.Load(context.Background(), session.LoadSpec{ModelID: "missing"})
	_, notLoaded := m.Predict(context.Background(), "dead-handle", "hi", nil)
	unavailable := backend.ErrUnavailable("inference runtime not built")
	return map[string]error{
		"model_not_found": notFound,
		"not_loaded":      notLoaded,
		"unavailable":     unavailable,
	}
}

func TestStatusForError(t *testing.T) {
	real := sessionErrors(t)
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"model_not_found", real["model_not_found"], http.StatusNotFound},
		{"not_loaded", real["not_loaded"], http.StatusConflict},
		{"unavailable", real["unavailable"], http.StatusServiceUnavailable},
		{"generic", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := statusForError(c.err); got != c.want {
			t.Errorf("%s: statusForError = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestPredict_NotLoadedMaps409(t *testing.T) {
	real := sessionErrors(t)
	r := NewMux(&mockService{predictErr: real["not_loaded"]})
	w := postJSON(t, r, "/sessions/dead/predict", `{"prompt":"hi"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestCreateSession_ModelNotFoundMaps404(t *testing.T) {
	real := sessionErrors(t)
	r := NewMux(&mockService{loadErr: real["model_not_found"]})
	w := postJSON(t, r, "/sessions", `{"model":"missing"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCreateSession_UnavailableMaps503(t *testing.T) {
	real := sessionErrors(t)
	r := NewMux(&mockService{loadErr: real["unavailable"]})
	w := postJSON(t, r, "/sessions", `{"model":"m1"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}
