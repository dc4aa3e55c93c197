// Package loader discovers script sources under a configured root, compiles
// them into one shared compiler context and registers the eligible
// definitions with a host registry. A Hook runs this pass exactly once.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-scriptloader/compiler"
	"github.com/goliatone/go-scriptloader/config"
	"github.com/goliatone/go-scriptloader/internal/discovery"
	"github.com/goliatone/go-scriptloader/loaderr"
	"github.com/goliatone/go-scriptloader/pkg/activity"
	"github.com/goliatone/go-scriptloader/registry"
)

// ErrAlreadyRun is wrapped in the GENERAL_ERROR returned by a second Run.
var ErrAlreadyRun = errors.New("bootstrap hook already ran")

// ErrNilRegistry is wrapped in the GENERAL_ERROR returned when the hook has
// no registry to bind into.
var ErrNilRegistry = errors.New("registry must not be nil")

// State is a step of the bootstrap pass.
type State int32

const (
	StateUnstarted State = iota
	StateResolvingConfig
	StateDiscovering
	StateCompiling
	StateFiltering
	StateRegistering
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "UNSTARTED"
	case StateResolvingConfig:
		return "RESOLVING_CONFIG"
	case StateDiscovering:
		return "DISCOVERING"
	case StateCompiling:
		return "COMPILING"
	case StateFiltering:
		return "FILTERING"
	case StateRegistering:
		return "REGISTERING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Report summarises a completed pass.
type Report struct {
	Root        config.LoadRoot
	Sources     []string
	Definitions []*compiler.Definition
	Entries     []Entry
	Duration    time.Duration
}

// Hook is the one-shot bootstrap binder.
type Hook struct {
	source   config.PropertySource
	registry registry.Registry
	cfg      hookConfig

	state atomic.Int32

	mu  sync.Mutex
	err error
}

// New builds a hook reading its load root from source and registering into
// reg. Nothing happens until Run.
func New(source config.PropertySource, reg registry.Registry, opts ...Option) *Hook {
	return &Hook{
		source:   source,
		registry: reg,
		cfg:      newHookConfig(opts),
	}
}

// State reports the hook's current step.
func (h *Hook) State() State {
	return State(h.state.Load())
}

// Err returns the failure that moved the hook to StateFailed, if any.
func (h *Hook) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Run executes the bootstrap pass. Failures before registration leave the
// registry untouched. A registry error during registration stops the pass,
// but keys inserted before it stay in the registry; rolling them back is
// the registry's concern. Configuration and registry errors are returned as-is;
// everything else is a *loaderr.Error. Only the first call does any work.
func (h *Hook) Run(ctx context.Context) (Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !h.state.CompareAndSwap(int32(StateUnstarted), int32(StateResolvingConfig)) {
		return Report{}, loaderr.General(ErrAlreadyRun)
	}

	started := h.cfg.now()
	report, err := h.run(ctx)
	report.Duration = h.cfg.now().Sub(started)
	if err != nil {
		h.fail(ctx, report, err)
		return report, err
	}

	h.state.Store(int32(StateDone))
	h.cfg.logger.Info("script bootstrap completed",
		"root", string(report.Root),
		"sources", len(report.Sources),
		"registered", len(report.Entries),
		"duration", report.Duration,
	)
	h.emit(ctx, activity.BuildBootstrapCompletedEvent(activity.BootstrapInput{
		Root:       string(report.Root),
		Sources:    len(report.Sources),
		Registered: len(report.Entries),
		Duration:   report.Duration,
		OccurredAt: h.cfg.now(),
	}))
	return report, nil
}

func (h *Hook) run(ctx context.Context) (Report, error) {
	var report Report
	if h.registry == nil {
		return report, loaderr.General(ErrNilRegistry)
	}

	shared := h.cfg.compiler
	if shared == nil {
		shared = compiler.Default()
	}
	if h.cfg.publish != nil {
		h.cfg.publish(shared)
	}

	root, err := config.PreResolve(h.source, h.cfg.prefix)
	if err != nil {
		return report, err
	}
	report.Root = root

	h.advance(StateDiscovering)
	sources, err := discovery.Discover(string(root), h.cfg.suffix)
	if errors.Is(err, loaderr.ErrNoSources) {
		h.logDiscovered(root, nil)
	}
	if err != nil {
		return report, err
	}
	report.Sources = sources
	h.cfg.metrics.observeDiscovered(len(sources))
	h.logDiscovered(root, sources)

	h.advance(StateCompiling)
	report.Definitions = make([]*compiler.Definition, 0, len(sources))
	for _, path := range sources {
		def, err := h.load(shared, path)
		if err != nil {
			return report, err
		}
		report.Definitions = append(report.Definitions, def)
	}

	h.advance(StateFiltering)
	filter := NewFilter(h.cfg.conditions, config.Snapshot(h.source), h.cfg.key)
	entries, err := filter.Apply(report.Definitions)
	if err != nil {
		return report, err
	}
	h.cfg.logger.Debug("filtered script definitions",
		"loaded", len(report.Definitions),
		"eligible", len(entries),
	)

	h.advance(StateRegistering)
	for _, entry := range entries {
		if err := h.registry.Register(entry.Key, entry.Definition); err != nil {
			return report, err
		}
		report.Entries = append(report.Entries, entry)
		h.cfg.metrics.observeRegistered()
		h.emit(ctx, activity.BuildComponentRegisteredEvent(activity.ComponentInput{
			Key:        entry.Key,
			Name:       entry.Definition.Name,
			Source:     entry.Definition.Source,
			Markers:    markerNames(entry.Definition),
			OccurredAt: h.cfg.now(),
		}))
	}
	return report, nil
}

func (h *Hook) load(shared *compiler.Context, path string) (*compiler.Definition, error) {
	started := h.cfg.now()
	def, err := shared.Load(path)
	event := LoadEvent{
		Source:   path,
		Duration: h.cfg.now().Sub(started),
		Err:      err,
	}
	if def != nil {
		event.Name = def.Name
	}
	h.cfg.loadLogger.LogLoad(event)
	return def, err
}

func (h *Hook) logDiscovered(root config.LoadRoot, sources []string) {
	switch len(sources) {
	case 0:
		h.cfg.logger.Warn("no script sources found", "root", string(root))
	case 1:
		h.cfg.logger.Info("found 1 script source", "root", string(root), "source", sources[0])
	default:
		h.cfg.logger.Info(fmt.Sprintf("found %d script sources", len(sources)), "root", string(root))
	}
}

func (h *Hook) advance(state State) {
	h.state.Store(int32(state))
}

func (h *Hook) fail(ctx context.Context, report Report, err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
	failedIn := h.State()
	h.state.Store(int32(StateFailed))

	h.cfg.metrics.observeFailure(err)
	attrs := []any{"state", failedIn.String(), "err", err}
	if class, ok := loaderr.ClassOf(err); ok {
		attrs = append(attrs, "class", class.String(), "code", class.Code())
	}
	h.cfg.logger.Error("script bootstrap failed", attrs...)

	input := activity.BootstrapInput{
		Root:       string(report.Root),
		Sources:    len(report.Sources),
		Registered: len(report.Entries),
		Duration:   report.Duration,
		Err:        err,
		OccurredAt: h.cfg.now(),
	}
	if class, ok := loaderr.ClassOf(err); ok {
		input.ErrorClass = class.String()
		input.ErrorCode = class.Code()
	}
	h.emit(ctx, activity.BuildBootstrapFailedEvent(input))
}

// Activity delivery never changes the outcome of the pass.
func (h *Hook) emit(ctx context.Context, event activity.Event) {
	if err := h.cfg.activity.Emit(ctx, event); err != nil {
		h.cfg.logger.Warn("activity hook failed", "verb", event.Verb, "err", err)
	}
}

func markerNames(def *compiler.Definition) []string {
	names := make([]string, 0, len(def.Markers))
	for _, marker := range def.Markers {
		names = append(names, string(marker))
	}
	return names
}

var _ LoadLogger = (*Metrics)(nil)
