// Package config holds the TranslationContext-equivalent options threaded
// through one compilation: trigraph/relaxed-mode toggles, include search
// paths, the include-depth cap, and the phase at which to stop, per §6's
// command surface and §9's design note.
package config

import (
	"github.com/google/uuid"

	"mcc/internal/preprocess"
)

// StopPhase identifies where the CLI driver should stop a translation, per
// §6: phases 1 through 4, 6 (full preprocess), or 8 (full compile).
type StopPhase int

const (
	StopPhase1 StopPhase = 1
	StopPhase2 StopPhase = 2
	StopPhase3 StopPhase = 3
	StopPhase4 StopPhase = 4
	StopPreprocess StopPhase = 6
	StopCompile    StopPhase = 8
)

// TranslationContext carries every option that can vary per invocation of
// the compiler, mirroring the original's single options struct passed down
// through every phase.
type TranslationContext struct {
	// BuildID is a random session identifier generated for each
	// TranslationContext. cmd/cc does not print it in diagnostics or in the
	// --print-ir report.
	BuildID uuid.UUID

	Trigraphs bool
	Relaxed   bool

	Search          *preprocess.SearchPath
	MaxIncludeDepth int

	Stop StopPhase

	PrintAST bool
	PrintIR  bool
}

// New creates a TranslationContext with the spec's defaults: trigraphs off
// (most real-world sources never use them), relaxed mode off (so
// Phase2.CheckFinalNewline warns on a missing final newline), and a full
// compile (phase 8).
func New() *TranslationContext {
	return &TranslationContext{
		BuildID:         uuid.New(),
		Search:          preprocess.NewSearchPath(nil, nil),
		MaxIncludeDepth: preprocess.MaxIncludeDepth,
		Stop:            StopCompile,
	}
}

// PreprocessOptions projects the fields internal/preprocess cares about.
func (c *TranslationContext) PreprocessOptions() preprocess.Options {
	return preprocess.Options{
		Trigraphs: c.Trigraphs,
		Relaxed:   c.Relaxed,
		Search:    c.Search,
	}
}
