package backend

import "fmt"

// Batch is a fixed-capacity staging buffer of tokens for one decode call.
// Each slot carries its position in the sequence, a sequence id, and an
// emit-logits flag. The buffer is owned by a session and reused in place
// across calls; Clear keeps the storage.
type Batch struct {
	tokens []Token
	pos    []int32
	seq    []int32
	logits []bool
	n      int
}

// NewBatch allocates a batch with the given fixed capacity.
func NewBatch(capacity int) *Batch {
	if capacity <= 0 {
		capacity = 1
	}
	return &Batch{
		tokens: make([]Token, capacity),
		pos:    make([]int32, capacity),
		seq:    make([]int32, capacity),
		logits: make([]bool, capacity),
	}
}

// Add stages one token. It fails when the batch is full; callers split
// oversized submissions into multiple sequential batches instead of
// truncating.
func (b *Batch) Add(t Token, pos int32, seq int32, emitLogits bool) error {
	if b.n >= len(b.tokens) {
		return fmt.Errorf("batch full: capacity %d", len(b.tokens))
	}
	b.tokens[b.n] = t
	b.pos[b.n] = pos
	b.seq[b.n] = seq
	b.logits[b.n] = emitLogits
	b.n++
	return nil
}

// Len returns the number of occupied slots.
func (b *Batch) Len() int { return b.n }

// Cap returns the fixed capacity.
func (b *Batch) Cap() int { return len(b.tokens) }

// Clear empties the batch without releasing storage.
func (b *Batch) Clear() { b.n = 0 }

// Tokens returns the occupied token slots.
func (b *Batch) Tokens() []Token { return b.tokens[:b.n] }

// Pos returns the occupied position slots.
func (b *Batch) Pos() []int32 { return b.pos[:b.n] }

// Seq returns the occupied sequence-id slots.
func (b *Batch) Seq() []int32 { return b.seq[:b.n] }

// Logits returns the occupied emit-logits slots.
func (b *Batch) Logits() []bool { return b.logits[:b.n] }

// LastLogitsIndex returns the index of the last slot with the emit-logits
// flag set, or -1 when none is set.
func (b *Batch) LastLogitsIndex() int {
	for i := b.n - 1; i >= 0; i-- {
		if b.logits[i] {
			return i
		}
	}
	return -1
}
