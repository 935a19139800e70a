package session

import (
	"time"

	"github.com/RishiAhuja/android-llama-inference/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultContextWindow = 2048
	defaultBatchCapacity = 512
	defaultMaxNewTokens  = 48
	defaultContextMargin = 8
	defaultThreads       = 4
	defaultGPULayers     = 99
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
	defaultDrainTimeout  = 5 * time.Second
	defaultSamplerSeed   = 42
)

// defaultStopMarkers covers the turn-delimited instruction format the
// bundled models use. Model families with other markers override this in
// configuration.
func defaultStopMarkers() []string {
	return []string{"<end_of_turn>", "<eos>", "<start_of_turn>"}
}

// Config encapsulates all tunables for Manager construction.
type Config struct {
	Registry []types.Model

	// Memory admission. BudgetMB 0 disables the check.
	BudgetMB int
	MarginMB int

	// Context geometry.
	ContextWindow int
	BatchCapacity int
	ContextMargin int

	// Compute.
	Threads   int
	GPULayers int
	UseMmap   bool

	// Generation.
	MaxNewTokens int
	StopMarkers  []string
	SamplerSeed  int64

	// Admission.
	MaxQueueDepth int
	MaxWait       time.Duration
	DrainTimeout  time.Duration

	Publisher EventPublisher
}

func (c *Config) applyDefaults() {
	if c.ContextWindow <= 0 {
		c.ContextWindow = defaultContextWindow
	}
	if c.BatchCapacity <= 0 {
		c.BatchCapacity = defaultBatchCapacity
	}
	if c.MaxNewTokens <= 0 {
		c.MaxNewTokens = defaultMaxNewTokens
	}
	if c.ContextMargin <= 0 {
		c.ContextMargin = defaultContextMargin
	}
	if c.Threads <= 0 {
		c.Threads = defaultThreads
	}
	if c.GPULayers <= 0 {
		c.GPULayers = defaultGPULayers
	}
	if len(c.StopMarkers) == 0 {
		c.StopMarkers = defaultStopMarkers()
	}
	if c.SamplerSeed == 0 {
		c.SamplerSeed = defaultSamplerSeed
	}
	if c.MaxQueueDepth <= 0 {
		c.MaxQueueDepth = defaultMaxQueueDepth
	}
	if c.MaxWait <= 0 {
		c.MaxWait = defaultMaxWait
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = defaultDrainTimeout
	}
	if c.Publisher == nil {
		c.Publisher = noopPublisher{}
	}
}
