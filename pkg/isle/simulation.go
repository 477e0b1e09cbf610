// Package isle ties the type tag registry, component store and event bus into one simulation.
//
// A Simulation is an explicit value threaded through the caller's loop. Each Step runs one
// exclusive-access phase followed by the commit phase that applies staged mutations. Several
// simulations in one process share nothing.
package isle

import (
	"context"

	"github.com/isle-engine/isle/pkg/isle/ecs"
	"github.com/isle-engine/isle/pkg/isle/event"
	"github.com/isle-engine/isle/pkg/isle/typetag"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Simulation struct {
	name     string
	registry *typetag.Registry
	store    *ecs.Store
	bus      *event.Bus
	log      zerolog.Logger
	tracer   trace.Tracer
	steps    uint64
}

// New creates a Simulation. Options passed here override the environment configuration.
func New(opts ...Option) (*Simulation, error) {
	cfg, err := loadSimulationConfig()
	if err != nil {
		return nil, eris.Wrap(err, "failed to load simulation config")
	}

	options := newDefaultOptions()
	cfg.applyToOptions(&options)

	var overrides Options
	for _, opt := range opts {
		opt(&overrides)
	}
	options.apply(overrides)

	if err := options.validate(); err != nil {
		return nil, eris.Wrap(err, "invalid simulation options")
	}

	if options.Tracer == nil {
		options.Tracer = noop.NewTracerProvider().Tracer(options.Name)
	}

	log := options.newLogger()
	registry := typetag.NewRegistry()

	sim := &Simulation{
		name:     options.Name,
		registry: registry,
		store: ecs.NewStore(
			ecs.WithRegistry(registry),
			ecs.WithLogger(log.With().Str("component", "store").Logger()),
			ecs.WithColumnCapacity(options.ColumnCapacity),
		),
		bus: event.NewBus(
			event.WithRegistry(registry),
			event.WithLogger(log.With().Str("component", "bus").Logger()),
		),
		log:    log,
		tracer: options.Tracer,
	}

	sim.log.Debug().Int("column_capacity", options.ColumnCapacity).Msg("Simulation created")
	return sim, nil
}

func (s *Simulation) Name() string {
	return s.name
}

func (s *Simulation) Registry() *typetag.Registry {
	return s.registry
}

func (s *Simulation) Store() *ecs.Store {
	return s.store
}

func (s *Simulation) Bus() *event.Bus {
	return s.bus
}

func (s *Simulation) Logger() zerolog.Logger {
	return s.log
}

// Steps returns the number of completed steps.
func (s *Simulation) Steps() uint64 {
	return s.steps
}

// Step runs fn with exclusive access to the store, then commits every staged mutation. A failing
// fn skips the commit phase; its staged mutations stay queued for the next commit. Commit failures
// of individual slots are aggregated and do not stop other slots from committing.
func (s *Simulation) Step(ctx context.Context, fn func(*ecs.Store) error) error {
	ctx, span := s.tracer.Start(ctx, "simulation.step",
		trace.WithAttributes(attribute.Int64("step", int64(s.steps))))
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "context done")
		return eris.Wrap(err, "step canceled")
	}

	if fn != nil {
		if err := fn(s.store); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "step function failed")
			return eris.Wrapf(err, "step %d failed", s.steps)
		}
	}

	err := s.Commit(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "commit failed")
	}
	s.steps++
	return err
}

// Commit applies every staged mutation without running a step function.
func (s *Simulation) Commit(ctx context.Context) error {
	_, span := s.tracer.Start(ctx, "simulation.commit")
	defer span.End()

	if err := s.store.CommitAll(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		s.log.Warn().Err(err).Uint64("step", s.steps).Msg("Staged mutations failed during commit")
		return err
	}
	return nil
}
