package session

import "os"

// SanityReport describes runtime checks for external dependencies.
type SanityReport struct {
	Backend       string `json:"backend"`
	BackendActive bool   `json:"backend_active"`
	LibraryPath   string `json:"library_path,omitempty"`
	LibraryFound  bool   `json:"library_found"`
	Error         string `json:"error,omitempty"`
}

// SanityCheck validates that the compute runtime's shared libraries are
// where the environment says they are. It does not mutate state and is
// safe to call at any time.
func (m *Manager) SanityCheck() SanityReport {
	r := SanityReport{Backend: m.runtime.Name(), BackendActive: m.BackendActive()}
	if r.Backend != "yzma" {
		// Stub and test runtimes have no on-disk libraries to verify.
		r.LibraryFound = true
		return r
	}
	dir := os.Getenv("INFERD_LLAMA_LIB")
	if dir == "" {
		dir = "./lib/llama"
	}
	r.LibraryPath = dir
	fi, err := os.Stat(dir)
	switch {
	case err != nil:
		r.Error = err.Error()
	case !fi.IsDir():
		r.Error = "library path is not a directory"
	default:
		r.LibraryFound = true
	}
	return r
}
