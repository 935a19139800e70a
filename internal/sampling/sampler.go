// Package sampling turns a logits vector into a single token id using a
// fixed transformation pipeline: top-k shortlist, softmax, top-p prefix
// truncation, temperature rescale of the survivors, and a seeded
// categorical draw. With the same seed and the same logits the chain is
// fully deterministic.
package sampling

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/RishiAhuja/android-llama-inference/internal/backend"
)

// Options configures a Chain. Zero values fall back to the defaults used
// by DefaultOptions.
type Options struct {
	TopK        int
	TopP        float64
	Temperature float64
	Seed        int64
}

// DefaultOptions returns the stock decoding parameters.
func DefaultOptions(seed int64) Options {
	return Options{
		TopK:        40,
		TopP:        0.9,
		Temperature: 0.7,
		Seed:        seed,
	}
}

type candidate struct {
	id    backend.Token
	logit float64
	prob  float64
}

// Chain applies the sampling pipeline. Not safe for concurrent use; each
// session owns its own chain.
type Chain struct {
	opts    Options
	rng     *rand.Rand
	history []backend.Token
	cands   []candidate
}

// New returns a chain seeded from opts.Seed.
func New(opts Options) *Chain {
	if opts.TopK <= 0 {
		opts.TopK = 40
	}
	if opts.TopP <= 0 || opts.TopP > 1 {
		opts.TopP = 1
	}
	return &Chain{
		opts: opts,
		rng:  rand.New(rand.NewSource(opts.Seed)),
	}
}

// Sample draws one token from the logits vector.
func (c *Chain) Sample(logits []float32) (backend.Token, error) {
	if len(logits) == 0 {
		return 0, fmt.Errorf("sampling: empty logits")
	}

	// Temperature at or below zero degenerates to greedy argmax.
	if c.opts.Temperature <= 0 {
		best := 0
		for i, v := range logits {
			if v > logits[best] {
				best = i
			}
		}
		return backend.Token(best), nil
	}

	cands := c.cands[:0]
	for i, v := range logits {
		cands = append(cands, candidate{id: backend.Token(i), logit: float64(v)})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].logit > cands[j].logit })
	if c.opts.TopK < len(cands) {
		cands = cands[:c.opts.TopK]
	}

	softmax(cands)

	// Keep the shortest prefix whose cumulative probability reaches
	// top-p. At least one candidate always survives.
	cut := len(cands)
	cum := 0.0
	for i := range cands {
		cum += cands[i].prob
		if cum >= c.opts.TopP {
			cut = i + 1
			break
		}
	}
	cands = cands[:cut]

	// Temperature rescales the surviving logits, then the distribution is
	// rebuilt over just those candidates.
	for i := range cands {
		cands[i].logit /= c.opts.Temperature
	}
	softmax(cands)

	r := c.rng.Float64()
	acc := 0.0
	for i := range cands {
		acc += cands[i].prob
		if r < acc {
			c.cands = cands[:0]
			return cands[i].id, nil
		}
	}
	// Floating point slack: the draw landed past the accumulated mass.
	c.cands = cands[:0]
	return cands[len(cands)-1].id, nil
}

// Accept records a token the caller committed to the context. The history
// is bookkeeping for the session transcript and is dropped on Reset.
func (c *Chain) Accept(t backend.Token) {
	c.history = append(c.history, t)
}

// History returns the tokens accepted since the last Reset.
func (c *Chain) History() []backend.Token {
	return c.history
}

// Reset clears accepted-token bookkeeping and rewinds the random stream
// to its seed, so a repeated conversation reproduces the same draws.
func (c *Chain) Reset() {
	c.history = c.history[:0]
	c.rng = rand.New(rand.NewSource(c.opts.Seed))
}

// Seed returns the seed the chain draws from.
func (c *Chain) Seed() int64 { return c.opts.Seed }

func softmax(cands []candidate) {
	maxLogit := cands[0].logit
	for _, cd := range cands[1:] {
		if cd.logit > maxLogit {
			maxLogit = cd.logit
		}
	}
	sum := 0.0
	for i := range cands {
		cands[i].prob = math.Exp(cands[i].logit - maxLogit)
		sum += cands[i].prob
	}
	for i := range cands {
		cands[i].prob /= sum
	}
}
