// Package registry discovers loadable model files on disk and derives
// display metadata from their filenames.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/RishiAhuja/android-llama-inference/pkg/types"
)

// GGUFScanner builds a model registry from a directory of *.gguf files.
type GGUFScanner struct{}

func NewGGUFScanner() *GGUFScanner { return &GGUFScanner{} }

// quantPattern matches common GGUF quantization suffixes such as Q4_K_M,
// Q8_0, or F16 embedded in the filename.
var quantPattern = regexp.MustCompile(`(?i)\b(q[0-9]+(?:_[a-z0-9]+)*|f16|f32|bf16)\b`)

// knownFamilies are matched case-insensitively against the filename.
var knownFamilies = []string{"gemma", "llama", "mistral", "phi", "qwen", "tinyllama"}

// Scan walks dir for *.gguf files and builds a registry from filenames.
// ID is the full filename (including extension); Path is the absolute
// file path. Quant and Family are best-effort parses of the filename.
func (s *GGUFScanner) Scan(dir string) ([]types.Model, error) {
	base, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		models = append(models, types.Model{
			ID:     name,
			Name:   name,
			Path:   filepath.Join(abs, name),
			Quant:  parseQuant(name),
			Family: parseFamily(name),
		})
	}
	return models, nil
}

// LoadDir is a convenience wrapper around the default scanner.
func LoadDir(dir string) ([]types.Model, error) {
	return NewGGUFScanner().Scan(dir)
}

func parseQuant(name string) string {
	m := quantPattern.FindString(name)
	return strings.ToUpper(m)
}

func parseFamily(name string) string {
	lower := strings.ToLower(name)
	for _, fam := range knownFamilies {
		if strings.Contains(lower, fam) {
			return fam
		}
	}
	return ""
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/models/llm
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
