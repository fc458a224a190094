package filter

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/s0up4200/tvcatalog/tvdb"
)

// runner is implemented by filters that can report runtime failures.
type runner interface {
	Run(ep *tvdb.Episode) (bool, error)
}

// Manager keeps named filter presets and applies them to episodes
type Manager struct {
	compiler Compiler
	filters  map[string]CompiledFilter
	logger   zerolog.Logger
	mu       sync.RWMutex
}

// ManagerOption configures a filter manager
type ManagerOption func(*Manager)

// WithCompiler sets a custom compiler
func WithCompiler(compiler Compiler) ManagerOption {
	return func(m *Manager) {
		m.compiler = compiler
	}
}

// WithLogger sets the logger used for evaluation failures
func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new filter manager
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		compiler: NewExprCompiler(WithCache(100)),
		filters:  make(map[string]CompiledFilter),
		logger:   zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Compile compiles an ad-hoc expression with the manager's compiler
func (m *Manager) Compile(expression string) (CompiledFilter, error) {
	return m.compiler.Compile(expression)
}

// RegisterFilter registers a new filter or updates an existing one
func (m *Manager) RegisterFilter(name, expression string) error {
	filter, err := m.compiler.Compile(expression)
	if err != nil {
		return fmt.Errorf("failed to compile filter '%s': %w", name, err)
	}

	m.mu.Lock()
	m.filters[name] = filter
	m.mu.Unlock()

	return nil
}

// RegisterFilters registers multiple filters at once. Nothing is registered
// if any expression fails to compile.
func (m *Manager) RegisterFilters(filters map[string]string) error {
	compiled := make(map[string]CompiledFilter, len(filters))

	for _, name := range slices.Sorted(maps.Keys(filters)) {
		filter, err := m.compiler.Compile(filters[name])
		if err != nil {
			return fmt.Errorf("failed to compile filter '%s': %w", name, err)
		}
		compiled[name] = filter
	}

	m.mu.Lock()
	maps.Copy(m.filters, compiled)
	m.mu.Unlock()

	return nil
}

// UnregisterFilter removes a filter
func (m *Manager) UnregisterFilter(name string) {
	m.mu.Lock()
	delete(m.filters, name)
	m.mu.Unlock()
}

// GetFilter returns a compiled filter by name
func (m *Manager) GetFilter(name string) (CompiledFilter, bool) {
	m.mu.RLock()
	filter, exists := m.filters[name]
	m.mu.RUnlock()
	return filter, exists
}

// ListFilters returns all registered filter names, sorted
func (m *Manager) ListFilters() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.filters))
}

// EvaluateFilter applies a registered filter
func (m *Manager) EvaluateFilter(ctx context.Context, name string, episodes []*tvdb.Episode) ([]*tvdb.Episode, error) {
	filter, exists := m.GetFilter(name)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, name)
	}

	return m.apply(ctx, name, filter, episodes)
}

// Apply returns the episodes matching filter, in input order
func (m *Manager) Apply(ctx context.Context, filter CompiledFilter, episodes []*tvdb.Episode) ([]*tvdb.Episode, error) {
	return m.apply(ctx, filter.Expression(), filter, episodes)
}

func (m *Manager) apply(ctx context.Context, name string, filter CompiledFilter, episodes []*tvdb.Episode) ([]*tvdb.Episode, error) {
	matches := make([]*tvdb.Episode, 0, len(episodes))

	for _, ep := range episodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r, ok := filter.(runner)
		if !ok {
			if filter.Evaluate(ep) {
				matches = append(matches, ep)
			}
			continue
		}

		match, err := r.Run(ep)
		if err != nil {
			var evalErr *EvaluationError
			if errors.As(err, &evalErr) {
				evalErr.FilterName = name
			}
			m.logger.Debug().Err(err).Msg("Skipping episode")
			continue
		}
		if match {
			matches = append(matches, ep)
		}
	}

	return matches, nil
}
