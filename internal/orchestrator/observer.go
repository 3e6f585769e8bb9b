// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

// Progress is an advisory progress report.
type Progress struct {
	// Candidate is the plan index of the candidate that advanced.
	Candidate int

	// Fragments is how many fragments that candidate has received.
	Fragments int

	// Total is how many fragments the whole run has received.
	Total int
}

// Observer receives run events. Calls are serialized, even in parallel
// mode, and happen on the run's goroutine(s), so implementations must hand
// off to their UI loop rather than touch UI state directly.
type Observer interface {
	// OnProgress is called after every fragment (streaming) or every
	// completed candidate (non-streaming).
	OnProgress(p Progress)

	// OnFailure is called when candidate index fails and is skipped.
	OnFailure(index int, err error)

	// OnComplete is called once with the final outcome.
	OnComplete(o Outcome)
}

// ObserverFuncs adapts optional functions to Observer.
type ObserverFuncs struct {
	Progress func(Progress)
	Failure  func(int, error)
	Complete func(Outcome)
}

func (f ObserverFuncs) OnProgress(p Progress) {
	if f.Progress != nil {
		f.Progress(p)
	}
}

func (f ObserverFuncs) OnFailure(index int, err error) {
	if f.Failure != nil {
		f.Failure(index, err)
	}
}

func (f ObserverFuncs) OnComplete(o Outcome) {
	if f.Complete != nil {
		f.Complete(o)
	}
}

// NopObserver ignores every event.
var NopObserver Observer = ObserverFuncs{}
