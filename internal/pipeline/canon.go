// Package pipeline orchestrates canonicalization over a module
// snapshot: one worker per function graph, progress events for the UI,
// per-function statistics for reporting. Each graph is owned by exactly
// one worker; the rewrite driver itself is single-threaded per graph.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"strata/internal/ir"
	"strata/internal/rewrite"
	"strata/internal/scf"
	"strata/internal/snapshot"
)

// Request configures one canonicalization run over a loaded module.
type Request struct {
	Module *snapshot.Module

	// Disabled lists pattern names excluded from the run.
	Disabled []string
	// MaxIterations caps driver sweeps per function; zero keeps the
	// driver default.
	MaxIterations int
	// VerifyOnly skips rewriting and only checks the graphs.
	VerifyOnly bool
	// VerifyEach re-verifies after every changed sweep.
	VerifyEach bool
	// Jobs caps concurrent workers; zero means GOMAXPROCS.
	Jobs int

	Progress ProgressSink
}

// FuncResult is the outcome for one function.
type FuncResult struct {
	Name    string
	Stats   rewrite.Stats
	Err     error
	Elapsed time.Duration
}

// Result is the outcome of a whole run.
type Result struct {
	Funcs   []FuncResult
	Failed  int
	Elapsed time.Duration
}

func emit(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}

// Run processes every function of the request's module. Graph mutations
// stay inside each function's worker. A function failure is recorded,
// not fatal; the first context cancellation aborts the run.
func Run(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	funcs := req.Module.Funcs
	results := make([]FuncResult, len(funcs))

	for _, fn := range funcs {
		emit(req.Progress, Event{Func: fn.Name, Stage: StageVerify, Status: StatusQueued})
	}

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, fn := range funcs {
		i, fn := i, fn
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = runFunc(req, fn)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{Funcs: results, Elapsed: time.Since(start)}
	for _, fr := range results {
		if fr.Err != nil {
			res.Failed++
		}
	}
	return res, nil
}

func runFunc(req Request, fn snapshot.Func) FuncResult {
	start := time.Now()
	fr := FuncResult{Name: fn.Name}
	sink := req.Progress

	emit(sink, Event{Func: fn.Name, Stage: StageVerify, Status: StatusWorking})
	if err := scf.VerifyGraph(fn.Graph); err != nil {
		fr.Err = fmt.Errorf("verify %s: %w", fn.Name, err)
		fr.Elapsed = time.Since(start)
		emit(sink, Event{Func: fn.Name, Stage: StageVerify, Status: StatusError, Err: fr.Err, Elapsed: fr.Elapsed})
		return fr
	}
	if req.VerifyOnly {
		fr.Elapsed = time.Since(start)
		emit(sink, Event{Func: fn.Name, Stage: StageVerify, Status: StatusDone, Elapsed: fr.Elapsed})
		return fr
	}

	emit(sink, Event{Func: fn.Name, Stage: StageCanon, Status: StatusWorking})
	fr.Stats, fr.Err = canonicalize(fn.Graph, req)
	fr.Elapsed = time.Since(start)
	if fr.Err != nil {
		emit(sink, Event{Func: fn.Name, Stage: StageCanon, Status: StatusError, Err: fr.Err, Elapsed: fr.Elapsed})
		return fr
	}
	emit(sink, Event{Func: fn.Name, Stage: StageCanon, Status: StatusDone, Elapsed: fr.Elapsed})
	return fr
}

func canonicalize(g *ir.Graph, req Request) (rewrite.Stats, error) {
	s := rewrite.NewSet()
	scf.RegisterCanonicalizers(s)
	for _, name := range req.Disabled {
		s.Disable(name)
	}
	opts := rewrite.Options{
		MaxIterations: req.MaxIterations,
		Fold:          scf.FoldOp,
	}
	if req.VerifyEach {
		opts.Verify = scf.VerifyGraph
	}
	stats, err := rewrite.Apply(g, s, opts)
	if err != nil {
		return stats, err
	}
	// Always leave a checked graph behind, even without per-sweep
	// verification.
	if err := scf.VerifyGraph(g); err != nil {
		return stats, fmt.Errorf("graph invalid after canonicalization: %w", err)
	}
	return stats, nil
}
