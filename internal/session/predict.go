package session

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Predict runs one prompt-to-response turn on the session. onToken, when
// non-nil, receives decoded text fragments as they are produced; fragments
// never contain stop-marker text. Valid only while the session is idle;
// concurrent callers queue per the admission configuration.
//
// Any failure mid-generation aborts the turn, resets the conversation so
// no stale batch or cache state survives, and returns the session to idle.
func (m *Manager) Predict(ctx context.Context, id, prompt string, onToken func(string)) (Result, error) {
	return m.PredictN(ctx, id, prompt, 0, onToken)
}

// PredictN is Predict with a per-call new-token budget. maxTokens 0 uses
// the configured default; values above the default are capped to it.
func (m *Manager) PredictN(ctx context.Context, id, prompt string, maxTokens int, onToken func(string)) (res Result, err error) {
	if maxTokens <= 0 || maxTokens > m.cfg.MaxNewTokens {
		maxTokens = m.cfg.MaxNewTokens
	}
	s, release, err := m.beginGeneration(ctx, id)
	if err != nil {
		return Result{}, err
	}
	defer release()

	defer func() {
		if r := recover(); r != nil {
			m.resetSession(s)
			res = Result{}
			err = decodeError{msg: fmt.Sprintf("panic during generation: %v", r)}
		}
	}()

	start := time.Now()
	res, err = m.generate(ctx, s, prompt, maxTokens, onToken)
	if err != nil {
		return Result{}, err
	}
	predictDuration.Observe(time.Since(start).Seconds())
	promptTokensTotal.Add(float64(res.PromptTokens))
	generatedTokensTotal.Add(float64(res.GeneratedTokens))
	m.publisher.Publish(Event{Name: "predict_done", Session: s.ID, Fields: map[string]any{
		"prompt_tokens":    res.PromptTokens,
		"generated_tokens": res.GeneratedTokens,
		"finish":           res.FinishReason,
	}})
	return res, nil
}

func (m *Manager) generate(ctx context.Context, s *Session, userPrompt string, maxTokens int, onToken func(string)) (Result, error) {
	formatted := s.formatter.UserTurn(userPrompt)
	tokens, err := s.model.Tokenize(formatted, true)
	if err != nil {
		return Result{}, tokenizeError{msg: err.Error()}
	}

	limit := m.cfg.ContextWindow - m.cfg.ContextMargin
	base := s.cursor
	if s.fresh {
		base = 0
	}
	// Reject before touching the cache so the cursor invariant survives
	// an oversized prompt.
	if len(tokens) > limit || base+len(tokens) > limit {
		return Result{}, contextOverflowError{need: base + len(tokens), window: m.cfg.ContextWindow}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if s.fresh {
		s.lctx.Clear()
		m.mu.Lock()
		s.cursor = 0
		s.history = nil
		s.fresh = false
		m.mu.Unlock()
	}

	m.mu.Lock()
	s.history = append(s.history, tokens...)
	m.mu.Unlock()

	// Prefill: submit the prompt in batch-capacity chunks, requesting
	// logits only for the final token.
	for off := 0; off < len(tokens); off += s.batch.Cap() {
		end := off + s.batch.Cap()
		if end > len(tokens) {
			end = len(tokens)
		}
		s.batch.Clear()
		for i := off; i < end; i++ {
			emit := i == len(tokens)-1
			if err := s.batch.Add(tokens[i], int32(s.cursor+(i-off)), 0, emit); err != nil {
				m.resetSession(s)
				return Result{}, decodeError{msg: "batch staging: " + err.Error()}
			}
		}
		if err := s.lctx.Decode(s.batch); err != nil {
			m.resetSession(s)
			return Result{}, decodeError{msg: err.Error()}
		}
		m.mu.Lock()
		s.cursor += end - off
		m.mu.Unlock()
	}
	s.batch.Clear()

	var (
		out      strings.Builder
		emitted  int
		holdback = m.markerHoldback()
		finish   = FinishBudget
		genCount = 0
	)

	for step := 0; step < maxTokens; step++ {
		if err := ctx.Err(); err != nil {
			m.resetSession(s)
			return Result{}, err
		}
		logits, err := s.lctx.Logits()
		if err != nil {
			m.resetSession(s)
			return Result{}, decodeError{msg: "logits: " + err.Error()}
		}
		tok, err := s.sampler.Sample(logits)
		if err != nil {
			m.resetSession(s)
			return Result{}, decodeError{msg: "sample: " + err.Error()}
		}
		if s.model.IsEOG(tok) {
			finish = FinishEOG
			break
		}
		s.sampler.Accept(tok)
		out.WriteString(s.model.TokenToPiece(tok))
		text := out.String()

		// Stop markers may span token boundaries, so match against the
		// accumulated text and truncate at the match point.
		if idx, ok := m.findStopMarker(text); ok {
			flushTo(onToken, text[:idx], &emitted)
			m.mu.Lock()
			s.history = append(s.history, tok)
			m.mu.Unlock()
			return m.finishTurn(s, text[:idx], FinishStopMarker, len(tokens), genCount+1), nil
		}
		// Hold back enough text that a marker split across pieces is
		// never streamed before it can be recognized.
		if safe := len(text) - holdback; safe > emitted {
			flushTo(onToken, text[:safe], &emitted)
		}

		// Feed the sampled token back for the next position.
		s.batch.Clear()
		if err := s.batch.Add(tok, int32(s.cursor), 0, true); err != nil {
			m.resetSession(s)
			return Result{}, decodeError{msg: "batch staging: " + err.Error()}
		}
		if err := s.lctx.Decode(s.batch); err != nil {
			m.resetSession(s)
			return Result{}, decodeError{msg: err.Error()}
		}
		m.mu.Lock()
		s.cursor++
		s.history = append(s.history, tok)
		m.mu.Unlock()
		genCount++

		if s.cursor >= limit {
			finish = FinishContextFull
			break
		}
	}

	text := out.String()
	flushTo(onToken, text, &emitted)
	return m.finishTurn(s, text, finish, len(tokens), genCount), nil
}

func (m *Manager) finishTurn(s *Session, text, finish string, promptTokens, genTokens int) Result {
	s.batch.Clear()
	return Result{
		Text:            text,
		FinishReason:    finish,
		PromptTokens:    promptTokens,
		GeneratedTokens: genTokens,
	}
}

// findStopMarker returns the index of the earliest stop marker in text.
func (m *Manager) findStopMarker(text string) (int, bool) {
	best := -1
	for _, marker := range m.cfg.StopMarkers {
		if idx := strings.Index(text, marker); idx >= 0 && (best < 0 || idx < best) {
			best = idx
		}
	}
	return best, best >= 0
}

// markerHoldback is the number of trailing bytes withheld from streaming,
// one less than the longest stop marker.
func (m *Manager) markerHoldback() int {
	longest := 0
	for _, marker := range m.cfg.StopMarkers {
		if len(marker) > longest {
			longest = len(marker)
		}
	}
	if longest == 0 {
		return 0
	}
	return longest - 1
}

func flushTo(onToken func(string), text string, emitted *int) {
	if onToken != nil && len(text) > *emitted {
		onToken(text[*emitted:])
	}
	if len(text) > *emitted {
		*emitted = len(text)
	}
}

// resetSession clears every piece of turn state after a failure: the
// batch, the cache, the cursor, the transcript, and the sampler stream.
// The next predict starts a fresh conversation from a known-good state.
func (m *Manager) resetSession(s *Session) {
	s.batch.Clear()
	s.lctx.Clear()
	s.sampler.Reset()
	m.mu.Lock()
	s.cursor = 0
	s.history = nil
	s.fresh = true
	m.mu.Unlock()
}
