package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RishiAhuja/android-llama-inference/internal/session"
	"github.com/RishiAhuja/android-llama-inference/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Load(ctx context.Context, spec session.LoadSpec) (types.SessionStatus, error)
	PredictN(ctx context.Context, id, prompt string, maxTokens int, onToken func(string)) (session.Result, error)
	Reset(id string) error
	Unload(id string) error
	SessionStatus(id string) (types.SessionStatus, error)
	Status() types.StatusResponse
	ListModels() []types.Model
	ModelInfo(id string) types.Model
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	r.Post("/sessions", func(w http.ResponseWriter, r *http.Request) {
		var req types.LoadRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}
		if req.Model == "" && req.Path == "" {
			writeJSONError(w, http.StatusBadRequest, "model or path is required")
			return
		}
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		st, err := svc.Load(joinedCtx, session.LoadSpec{ModelID: req.Model, Path: req.Path, UseGPU: req.UseGPU})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(types.LoadResponse{
			Session: st.Session,
			Model:   svc.ModelInfo(st.ModelID),
			GPU:     st.GPU,
		})
	})

	r.Post("/sessions/{id}/predict", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req types.PredictRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Prompt) == "" {
			writeJSONError(w, http.StatusBadRequest, "prompt is required")
			return
		}

		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if sec := predictTimeoutSeconds; sec > 0 {
			var tcancel context.CancelFunc
			joinedCtx, tcancel = context.WithTimeout(joinedCtx, time.Duration(sec)*time.Second)
			defer tcancel()
		}

		if req.Stream {
			servePredictStream(w, r, svc, joinedCtx, id, req)
			return
		}

		start := time.Now()
		res, err := svc.PredictN(joinedCtx, id, req.Prompt, req.MaxTokens, nil)
		if err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			writeServiceError(w, r, err)
			logPredictEnd(r, start, statusForError(err), err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(predictResponse(res))
		logPredictEnd(r, start, http.StatusOK, nil)
	})

	r.Post("/sessions/{id}/reset", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Reset(chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Delete("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Unload(chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/sessions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"sessions": svc.Status().Sessions})
	})

	r.Get("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.SessionStatus(chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st)
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(types.ModelsResponse{Models: svc.ListModels()})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("no session loaded"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// servePredictStream writes NDJSON: one {"token":...} line per fragment,
// then a final summary line.
func servePredictStream(w http.ResponseWriter, r *http.Request, svc Service, ctx context.Context, id string, req types.PredictRequest) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	enc := json.NewEncoder(w)
	start := time.Now()
	wrote := false
	res, err := svc.PredictN(ctx, id, req.Prompt, req.MaxTokens, func(frag string) {
		_ = enc.Encode(map[string]string{"token": frag})
		wrote = true
		if flush != nil {
			flush()
		}
	})
	if err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		if wrote {
			// Headers are gone; report the failure in-band.
			_ = enc.Encode(map[string]any{"error": err.Error(), "code": statusForError(err)})
		} else {
			writeJSONError(w, statusForError(err), err.Error())
		}
		logPredictEnd(r, start, statusForError(err), err)
		return
	}
	_ = enc.Encode(map[string]any{
		"done":          true,
		"finish_reason": res.FinishReason,
		"usage":         predictResponse(res).Usage,
	})
	if flush != nil {
		flush()
	}
	logPredictEnd(r, start, http.StatusOK, nil)
}

func predictResponse(res session.Result) types.PredictResponse {
	return types.PredictResponse{
		Text:         res.Text,
		FinishReason: res.FinishReason,
		Usage: types.Usage{
			PromptTokens:    res.PromptTokens,
			GeneratedTokens: res.GeneratedTokens,
			TotalTokens:     res.PromptTokens + res.GeneratedTokens,
		},
	}
}

// decodeJSONBody enforces content type and body size, reporting errors
// itself. Returns false when the request was already answered.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
