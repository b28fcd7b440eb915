// Package pipeline drives the chunked analysis run: split the transcript,
// call the generation service once per chunk, normalize each response,
// and merge the results. Chunks are processed strictly in order, one at a
// time; a failure on any chunk fails the whole run and discards every
// result accumulated so far.
package pipeline

import (
	"context"
	"errors"

	"videonotes-backend/internal/analysis"
	"videonotes-backend/internal/models"
	"videonotes-backend/internal/transcript"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// RunState is the explicit state threaded through a run. It replaces
// free-floating mutable session variables: the driver takes nothing from
// and leaves nothing in any shared place.
type RunState struct {
	Status       Status
	ChunkResults []models.AnalysisResult
	Merged       *models.AnalysisResult
	Error        *analysis.Failure
}

// ChunkOptions carries the per-run generation settings applied to every
// chunk of one transcript.
type ChunkOptions struct {
	Model      string
	MaxWords   int
	Sections   []string
	UserPrompt string
	EasyRead   bool
}

// ChunkAnalyzer produces the raw model text for one transcript chunk.
// Implemented by services.GeminiService; mocked in tests.
type ChunkAnalyzer interface {
	AnalyzeChunk(ctx context.Context, part string, opts ChunkOptions) (string, error)
}

// ProgressFunc is invoked before each chunk is submitted, 1-based.
type ProgressFunc func(chunk, total int)

type Runner struct {
	analyzer ChunkAnalyzer
}

func NewRunner(analyzer ChunkAnalyzer) *Runner {
	return &Runner{analyzer: analyzer}
}

// Run executes the whole pipeline for one transcript. numParts is
// clamped by the segmenter; progress may be nil.
//
// All-or-nothing: on any chunk failure the accumulated chunk results are
// cleared, no merge is attempted, and the reported failure is the
// chunk's own reason, never a downstream error.
func (r *Runner) Run(ctx context.Context, text string, numParts int, opts ChunkOptions, progress ProgressFunc) RunState {
	state := RunState{Status: StatusRunning}

	parts := transcript.SplitByParts(text, numParts)
	state.ChunkResults = make([]models.AnalysisResult, 0, len(parts))

	for i, part := range parts {
		if progress != nil {
			progress(i+1, len(parts))
		}

		if err := ctx.Err(); err != nil {
			return failed(analysis.NewFailure(analysis.FailureProvider, err))
		}

		raw, err := r.analyzer.AnalyzeChunk(ctx, part, opts)
		if err != nil {
			return failed(asFailure(err))
		}

		result, fail := analysis.Normalize(raw)
		if fail != nil {
			return failed(fail)
		}

		state.ChunkResults = append(state.ChunkResults, result)
	}

	merged := analysis.Merge(state.ChunkResults)
	state.Merged = &merged
	state.Status = StatusSucceeded
	return state
}

func failed(f *analysis.Failure) RunState {
	return RunState{Status: StatusFailed, Error: f}
}

// asFailure keeps an analyzer's own Failure classification and wraps
// anything else as a provider error.
func asFailure(err error) *analysis.Failure {
	var f *analysis.Failure
	if errors.As(err, &f) {
		return f
	}
	return analysis.NewFailure(analysis.FailureProvider, err)
}
