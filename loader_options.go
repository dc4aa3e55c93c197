package loader

import (
	"log/slog"
	"strings"
	"time"

	"github.com/goliatone/go-scriptloader/compiler"
	"github.com/goliatone/go-scriptloader/config"
	"github.com/goliatone/go-scriptloader/internal/discovery"
	"github.com/goliatone/go-scriptloader/pkg/activity"
	"github.com/goliatone/go-scriptloader/pkg/envelope"
)

// Option configures a Hook.
type Option func(*hookConfig)

// ContextPublisher exposes the shared compiler context to collaborators
// that resolve type names after bootstrap.
type ContextPublisher func(*compiler.Context)

type hookConfig struct {
	prefix     string
	suffix     string
	compiler   *compiler.Context
	publish    ContextPublisher
	conditions ConditionEvaluator
	key        KeyFunc
	logger     *slog.Logger
	loadLogger LoadLogger
	metrics    *Metrics
	hooks      activity.Hooks
	actorID    string
	tenantID   string
	activity   *activity.Emitter
	now        func() time.Time
}

func defaultHookConfig() hookConfig {
	return hookConfig{
		prefix:  config.DefaultPrefix,
		suffix:  discovery.DefaultSuffix,
		publish: envelope.SetSharedContext,
		key:     DefaultKey,
		logger:  discardLogger(),
		now:     time.Now,
	}
}

func newHookConfig(opts []Option) hookConfig {
	cfg := defaultHookConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	loggers := multiLoadLogger{SlogLoadLogger(cfg.logger)}
	if cfg.loadLogger != nil {
		loggers = append(loggers, cfg.loadLogger)
	}
	if cfg.metrics != nil {
		loggers = append(loggers, cfg.metrics)
	}
	cfg.loadLogger = loggers
	cfg.activity = activity.NewEmitter(cfg.hooks, activity.DefaultChannel, cfg.actorID, cfg.tenantID)
	return cfg
}

// WithPrefix sets the property prefix the load root is bound under.
func WithPrefix(prefix string) Option {
	return func(cfg *hookConfig) {
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			cfg.prefix = prefix
		}
	}
}

// WithSuffix sets the file-name suffix of script sources.
func WithSuffix(suffix string) Option {
	return func(cfg *hookConfig) {
		if suffix != "" {
			cfg.suffix = suffix
		}
	}
}

// WithCompiler loads sources into ctx instead of compiler.Default().
func WithCompiler(ctx *compiler.Context) Option {
	return func(cfg *hookConfig) {
		cfg.compiler = ctx
	}
}

// WithContextPublisher replaces envelope.SetSharedContext as the publisher of
// the compiler context. nil disables publication.
func WithContextPublisher(publish ContextPublisher) Option {
	return func(cfg *hookConfig) {
		cfg.publish = publish
	}
}

// WithConditionEvaluator selects the engine for definition conditions.
func WithConditionEvaluator(conditions ConditionEvaluator) Option {
	return func(cfg *hookConfig) {
		cfg.conditions = conditions
	}
}

// WithKeyFunc overrides how registry keys are derived.
func WithKeyFunc(key KeyFunc) Option {
	return func(cfg *hookConfig) {
		if key != nil {
			cfg.key = key
		}
	}
}

// WithLogger sets the structured logger. Output is discarded by default.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *hookConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithLoadLogger attaches an extra per-source load logger.
func WithLoadLogger(logger LoadLogger) Option {
	return func(cfg *hookConfig) {
		cfg.loadLogger = logger
	}
}

// WithMetrics records bootstrap metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(cfg *hookConfig) {
		cfg.metrics = m
	}
}

// WithActivityHooks attaches activity hooks. Nil entries are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *hookConfig) {
		cfg.hooks = normalized
	}
}

// WithActivityActor stamps activity events with the identity of the process
// running the bootstrap and the tenant it serves. UUIDs map onto go-users
// record IDs; other actor values are kept in the record data.
func WithActivityActor(actorID, tenantID string) Option {
	return func(cfg *hookConfig) {
		cfg.actorID = strings.TrimSpace(actorID)
		cfg.tenantID = strings.TrimSpace(tenantID)
	}
}

// WithClock replaces time.Now for durations and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(cfg *hookConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make(activity.Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			normalized = append(normalized, hook)
		}
	}
	if len(normalized) == 0 {
		return nil
	}
	return normalized
}
