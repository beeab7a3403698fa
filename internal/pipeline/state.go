// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import "sync"

// Stage names a pipeline step.
type Stage string

const (
	StageIdle          Stage = "idle"
	StageExtract       Stage = "extract"
	StageDetectType    Stage = "detect_type"
	StageKeywords      Stage = "keywords"
	StageModel         Stage = "model"
	StageKeyphrases    Stage = "keyphrases"
	StageSearch        Stage = "search"
	StageEvaluation    Stage = "evaluation"
	StageCheckpoint    Stage = "checkpoint"
	StageAuthorReport  Stage = "author_report"
	StageAuditorReport Stage = "auditor_report"
	StageRelease       Stage = "release"
	StageDone          Stage = "done"
)

// Fixed progress reached when each stage completes.
var stageProgress = map[Stage]int{
	StageIdle:          5,
	StageExtract:       10,
	StageDetectType:    15,
	StageKeywords:      18,
	StageModel:         25,
	StageKeyphrases:    35,
	StageSearch:        55,
	StageEvaluation:    75,
	StageCheckpoint:    80,
	StageAuthorReport:  85,
	StageAuditorReport: 95,
	StageRelease:       100,
}

// State is the only pipeline data shared between the worker and the
// approver. Progress never decreases.
type State struct {
	mu        sync.Mutex
	stage     Stage
	progress  int
	started   bool
	cancelled bool
}

// Snapshot returns the current stage and progress.
func (s *State) Snapshot() (Stage, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage, s.progress
}

// Cancelled reports whether cancellation was requested.
func (s *State) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

func (s *State) cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
}

// start marks the state as used. It returns false on a second call.
func (s *State) start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return false
	}
	s.started = true
	s.stage = StageIdle
	return true
}

// enter records stage as current and returns the progress to report.
func (s *State) enter(stage Stage, progress int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = stage
	s.progress = max(s.progress, progress)
	return s.progress
}
