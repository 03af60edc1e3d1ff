// Package scan defines the pluggable inspection stage the worker runs against
// each upload, plus the implementations filegate ships with. Swapping in a
// real antivirus engine means implementing Scanner; the state machine does
// not change.
package scan

import (
	"context"
	"time"
)

// Verdict is the outcome of inspecting a file.
type Verdict int

const (
	// VerdictClean means the file passed inspection.
	VerdictClean Verdict = iota
	// VerdictInfected means the file must not be committed.
	VerdictInfected
)

// Result pairs a verdict with an explanation for non-clean outcomes.
type Result struct {
	Verdict Verdict
	Detail  string
}

// Scanner inspects the file at path. A returned error means the inspection
// itself could not run; a rejected file is reported via the verdict instead.
type Scanner interface {
	Scan(ctx context.Context, path string) (Result, error)
}

// Simulated stands in for an antivirus engine by sleeping for Delay and
// reporting every file clean.
type Simulated struct {
	Delay time.Duration
}

// Scan waits out the configured delay, honoring context cancellation.
func (s Simulated) Scan(ctx context.Context, path string) (Result, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}
	return Result{Verdict: VerdictClean}, nil
}

// Chain runs scanners in order; the first non-clean verdict or error wins.
type Chain []Scanner

// Scan inspects path with each scanner in turn.
func (c Chain) Scan(ctx context.Context, path string) (Result, error) {
	for _, s := range c {
		res, err := s.Scan(ctx, path)
		if err != nil {
			return Result{}, err
		}
		if res.Verdict != VerdictClean {
			return res, nil
		}
	}
	return Result{Verdict: VerdictClean}, nil
}
