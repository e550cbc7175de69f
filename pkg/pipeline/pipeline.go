// Package pipeline executes a planner.Plan: it runs every stage's
// CheckRunner lifecycle, interleaves their source streams in canonical
// order, and streams the resulting results out over a channel (spec.md
// §4.3, §4.4).
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pkgcheck-go/pkgcheck/pkg/consumer"
	"github.com/pkgcheck-go/pkgcheck/pkg/interleave"
	"github.com/pkgcheck-go/pkgcheck/pkg/planner"
	"github.com/pkgcheck-go/pkgcheck/pkg/result"
	"github.com/pkgcheck-go/pkgcheck/pkg/runner"
	"github.com/pkgcheck-go/pkgcheck/pkg/source"
)

// tracerName is the OTel tracer name for the pipeline package.
const tracerName = "pkgcheck"

// Event is one element of a Pipeline's result stream: either a Result or
// a terminal error. Once Err is non-nil no further events follow.
type Event struct {
	Result result.Result
	Err    error
}

// Pipeline runs a planner.Plan to completion, driving each stage's
// CheckRunner in the interleaved order its source items arrive in.
type Pipeline struct {
	plan     *planner.Plan
	restrict source.Restriction
	tracer   trace.Tracer
}

// New builds a Pipeline from a plan, optionally narrowed by restrict.
func New(plan *planner.Plan, restrict source.Restriction) *Pipeline {
	return &Pipeline{plan: plan, restrict: restrict}
}

func (p *Pipeline) tracerOrDefault() trace.Tracer {
	if p.tracer != nil {
		return p.tracer
	}

	return otel.Tracer(tracerName)
}

// Run executes the pipeline and returns a channel of Events. The
// channel is closed once the pipeline finishes, successfully or not; a
// run that fails sends exactly one Event with a non-nil Err as its last
// send before closing.
func (p *Pipeline) Run(ctx context.Context) <-chan Event {
	out := make(chan Event)

	go func() {
		defer close(out)

		ctx, span := p.tracerOrDefault().Start(ctx, "pkgcheck.pipeline",
			trace.WithAttributes(attribute.Int("pipeline.stages", len(p.plan.Stages))))
		defer span.End()

		stages := make([]stageState, len(p.plan.Stages))
		pipes := make([]source.Iterator, len(p.plan.Stages))

		for i, stage := range p.plan.Stages {
			checkRunner := runner.New(stage.Checks)

			wrapped := consumer.Consumer(checkRunner)
			for j := len(stage.Transforms) - 1; j >= 0; j-- {
				wrapped = stage.Transforms[j].Wrap(wrapped)
			}

			stages[i] = stageState{runner: checkRunner, consumer: wrapped}

			it, err := stage.Source.Iter(ctx, p.restrict)
			if err != nil {
				out <- Event{Err: fmt.Errorf("pipeline: stage %d iter: %w", i, err)}

				return
			}

			pipes[i] = it

			res, err := wrapped.Start(ctx)
			if err != nil {
				out <- Event{Err: fmt.Errorf("pipeline: stage %d start: %w", i, err)}

				return
			}

			emit(out, res)
		}

		if !p.drain(ctx, out, stages, pipes) {
			return
		}

		for i, st := range stages {
			res, err := st.consumer.Finish(ctx)
			if err != nil {
				out <- Event{Err: fmt.Errorf("pipeline: stage %d finish: %w", i, err)}

				return
			}

			emit(out, res)
		}
	}()

	return out
}

// stageState bundles a stage's runner (for introspection) with the
// fully-wrapped consumer the interleaved source feeds.
type stageState struct {
	runner   *runner.CheckRunner
	consumer consumer.Consumer
}

// drain merges pipes and feeds each item to its stage's consumer,
// reporting whether the pipeline should continue to the Finish phase.
func (p *Pipeline) drain(ctx context.Context, out chan<- Event, stages []stageState, pipes []source.Iterator) bool {
	merged := interleave.New(pipes)
	defer merged.Close()

	for {
		entry, err := merged.Next(ctx)
		if err != nil {
			if isExhausted(err) {
				return true
			}

			out <- Event{Err: fmt.Errorf("pipeline: interleave: %w", err)}

			return false
		}

		res, err := stages[entry.PipeIndex].consumer.Feed(ctx, entry.Item)
		if err != nil {
			out <- Event{Err: fmt.Errorf("pipeline: feed: %w", err)}

			return false
		}

		emit(out, res)
	}
}

func emit(out chan<- Event, results []result.Result) {
	for _, r := range results {
		out <- Event{Result: r}
	}
}

func isExhausted(err error) bool {
	return errors.Is(err, interleave.ErrExhausted)
}
