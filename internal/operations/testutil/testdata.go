// Package testutil builds balance-board recording trees for pipeline tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// RecordingHeader is the two-line preamble every recording starts with
const RecordingHeader = "Wii Balance Board recording\nt tl tr bl br x y\n"

// Sample is one raw row: a millisecond timestamp and the X/Y channels
type Sample struct {
	Ms   float64
	X, Y float64
}

// RecordingText renders samples in the raw record layout
func RecordingText(samples []Sample) string {
	var b strings.Builder
	b.WriteString(RecordingHeader)
	for _, s := range samples {
		fmt.Fprintf(&b, "%g 0 0 0 0 %g %g\n", s.Ms, s.X, s.Y)
	}
	return b.String()
}

// Steady returns n samples spaced stepMs apart starting at 0 ms, all at (x, y)
func Steady(n int, stepMs, x, y float64) []Sample {
	samples := make([]Sample, n)
	for i := range samples {
		samples[i] = Sample{Ms: float64(i) * stepMs, X: x, Y: y}
	}
	return samples
}

// TestDataGenerator writes recordings below a base directory
type TestDataGenerator struct {
	t       *testing.T
	baseDir string
}

// NewTestDataGenerator creates a new test data generator
func NewTestDataGenerator(t *testing.T, baseDir string) *TestDataGenerator {
	return &TestDataGenerator{t: t, baseDir: baseDir}
}

// BaseDir returns the root the generator writes into
func (g *TestDataGenerator) BaseDir() string {
	return g.baseDir
}

// Recording writes samples to rel (slash separated) and returns the full path
func (g *TestDataGenerator) Recording(rel string, samples []Sample) string {
	return g.Raw(rel, RecordingText(samples))
}

// Raw writes arbitrary content to rel and returns the full path
func (g *TestDataGenerator) Raw(rel, content string) string {
	g.t.Helper()
	path := filepath.Join(g.baseDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		g.t.Fatalf("failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		g.t.Fatalf("failed to write %s: %v", rel, err)
	}
	return path
}

// Dir creates an empty directory below the base
func (g *TestDataGenerator) Dir(rel string) string {
	g.t.Helper()
	path := filepath.Join(g.baseDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(path, 0755); err != nil {
		g.t.Fatalf("failed to create %s: %v", rel, err)
	}
	return path
}
