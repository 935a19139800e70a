//go:build !yzma

package backend

// This file provides the no-FFI stub runtime compiled when the 'yzma' build
// tag is NOT set, keeping default builds and CI free of native libraries.
// The real runtime lives in runtime_yzma.go (tagged 'yzma').

type stubRuntime struct{}

// NewRuntime returns the compute runtime for this build.
func NewRuntime() Runtime { return stubRuntime{} }

func (stubRuntime) Name() string { return "stub" }

func (stubRuntime) Init() error {
	// Fail fast: compute runtime not available in this build.
	return ErrUnavailable("inference runtime not built (missing 'yzma' build tag)")
}

func (stubRuntime) Free() {}

func (stubRuntime) LoadModel(path string, opts ModelOptions) (Model, error) {
	return nil, ErrUnavailable("inference runtime not built (missing 'yzma' build tag)")
}

func (stubRuntime) NewContext(m Model, opts ContextOptions) (Context, error) {
	return nil, ErrUnavailable("inference runtime not built (missing 'yzma' build tag)")
}
