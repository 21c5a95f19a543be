// Package intent defines the narrow contract the Skill manager uses to
// classify recognized text (spec §6.5 "Intent parser"), plus a reference
// implementation good enough to exercise the control plane end-to-end
// without a real NLU dependency.
package intent

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Result is what the parser produces for one utterance.
type Result struct {
	Name       string
	Confidence float64
	Fields     map[string]string
}

// Parser is the external collaborator contract (spec §6.5): load training
// files per intent name, train once all files are loaded, then classify.
type Parser interface {
	LoadFile(name, path string) error
	Train() error
	CalcIntent(text string) (Result, error)
}

// samplePhrase is one training example for an intent.
type samplePhrase struct {
	name    string
	phrases []string
}

// KeywordParser is a minimal, dependency-free reference Parser: each
// loaded file contributes its name as the intent and its line contents as
// trigger substrings, and confidence is 1.0 on an exact substring match,
// 0 otherwise. It exists purely so the repository builds and its tests run
// without wiring a real intent engine (see SPEC_FULL.md §4.6).
type KeywordParser struct {
	mu      sync.Mutex
	samples []samplePhrase
}

func NewKeywordParser() *KeywordParser {
	return &KeywordParser{}
}

// LoadFile registers name as an intent whose trigger phrases are the
// newline-separated contents at path. Tests typically call LoadPhrases
// directly instead of reading from disk.
func (p *KeywordParser) LoadFile(name, path string) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read intent file %s: %w", path, err)
	}
	var phrases []string
	for _, line := range strings.Split(string(body), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			phrases = append(phrases, line)
		}
	}
	p.LoadPhrases(name, phrases...)
	return nil
}

// LoadPhrases is the in-memory equivalent of LoadFile, used by skills and
// tests that don't ship on-disk vocab files.
func (p *KeywordParser) LoadPhrases(name string, phrases ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.samples = append(p.samples, samplePhrase{name: name, phrases: phrases})
}

func (p *KeywordParser) Train() error { return nil }

func (p *KeywordParser) CalcIntent(text string) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	lower := strings.ToLower(text)
	for _, s := range p.samples {
		for _, phrase := range s.phrases {
			if strings.Contains(lower, strings.ToLower(phrase)) {
				return Result{Name: s.name, Confidence: 1.0, Fields: map[string]string{}}, nil
			}
		}
	}
	return Result{Name: "", Confidence: 0, Fields: map[string]string{}}, nil
}
