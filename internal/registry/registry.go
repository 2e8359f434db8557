// Package registry provides the schema registration facade: it buffers
// schema definitions, detects duplicates, resolves cross-references, and
// commits everything into a validation engine in dependency-safe order.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/unbywyd/schemareg/internal/dedupe"
	"github.com/unbywyd/schemareg/internal/engine"
	"github.com/unbywyd/schemareg/internal/metrics"
	"github.com/unbywyd/schemareg/internal/resolver"
	"github.com/unbywyd/schemareg/internal/schema"
)

// Registry buffers schema registrations until Flush pushes them into the
// validation engine. One registry exists per process; it is constructed
// explicitly and passed to whatever needs to register schemas.
//
// All mutable state is guarded by a single mutex. Registration is a
// startup-phase activity and every operation is short in-memory work, so
// one coarse lock is enough.
type Registry struct {
	mu       sync.Mutex
	engine   engine.Engine
	detector *dedupe.Detector
	logger   *slog.Logger
	metrics  *metrics.Metrics

	store      map[string]*schema.Node // accepted, by id
	registered map[string]struct{}     // confirmed in the engine
	pending    map[string]*schema.Node // accepted, not yet committed
	pendingIDs []string                // insertion order of pending
	flushed    bool

	commitOrder []string
	reports     []dedupe.Report
}

// Option configures a Registry.
type Option func(*Registry)

// WithDetector enables duplicate detection. Detection costs a scan over
// every accepted schema per registration, so it is off unless requested.
func WithDetector(d *dedupe.Detector) Option {
	return func(r *Registry) { r.detector = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// New creates a registry committing into eng.
func New(eng engine.Engine, opts ...Option) *Registry {
	r := &Registry{
		engine:     eng,
		logger:     slog.Default(),
		store:      make(map[string]*schema.Node),
		registered: make(map[string]struct{}),
		pending:    make(map[string]*schema.Node),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register accepts a schema for registration. The schema must carry an id.
// Registering structurally equivalent content under an id that is already
// accepted is idempotent and returns the first-registered instance.
// Structurally different content under a taken id fails with
// ErrConflictingDefinition immediately, never deferred to flush.
//
// Before the registry has flushed, the schema is queued; afterwards it is
// resolved and committed to the engine at once.
func (r *Registry) Register(n *schema.Node) (*schema.Node, error) {
	if n == nil || n.ID == "" {
		r.count("missing_id")
		return nil, fmt.Errorf("%w", ErrMissingID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.lookupLocked(n.ID); ok {
		if dedupe.Canonical(existing) == dedupe.Canonical(n) {
			r.count("idempotent")
			return existing, nil
		}
		r.count("conflict")
		return nil, fmt.Errorf("%w: id %q", ErrConflictingDefinition, n.ID)
	}

	if r.detector != nil {
		if r.metrics != nil {
			r.metrics.DuplicateScans.Inc()
		}
		for _, report := range r.detector.Scan(n, r.store) {
			r.reports = append(r.reports, report)
			if r.metrics != nil {
				r.metrics.DuplicatesDetected.Inc()
			}
			r.logger.Warn("structurally duplicate schemas",
				slog.String("report_id", report.ID),
				slog.String("schema", report.SchemaID),
				slog.String("duplicate_of", report.DuplicateOf),
				slog.String("fingerprint", report.Fingerprint),
			)
		}
	}

	r.store[n.ID] = n

	if r.flushed {
		if err := r.commitLocked(n.ID, n); err != nil {
			delete(r.store, n.ID)
			return nil, err
		}
		r.count("accepted")
		return n, nil
	}

	r.pending[n.ID] = n
	r.pendingIDs = append(r.pendingIDs, n.ID)
	if r.metrics != nil {
		r.metrics.PendingSchemas.Set(float64(len(r.pending)))
	}
	r.count("accepted")
	r.logger.Debug("schema accepted", slog.String("id", n.ID))
	return n, nil
}

// Ref builds a reference node naming id. The target does not need to be
// registered yet; constructing a reference is always legal, only resolving
// it later can fail. This is what lets mutually referencing schemas be
// declared in either order.
func (r *Registry) Ref(id string) (*schema.Node, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: reference target", ErrMissingID)
	}
	return schema.NewRef(id), nil
}

// Flush drains the pending queue into the engine in topological order:
// every reference target is committed no later than its referrer, with
// reference cycles committed in discovery order. The first failure aborts
// the remaining flush; schemas already committed stay committed. Once a
// flush succeeds, subsequent calls are no-ops and later registrations
// commit immediately.
func (r *Registry) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.flushed {
		return nil
	}
	start := time.Now()

	order, err := resolver.Order(r.pendingIDs, r.pending, r.knownLocked)
	if err != nil {
		r.countFlushFailure("unresolved_reference")
		return err
	}

	for _, id := range order {
		if err := r.commitLocked(id, r.pending[id]); err != nil {
			r.prunePendingIDsLocked()
			r.countFlushFailure("engine_rejection")
			return err
		}
		delete(r.pending, id)
	}
	r.prunePendingIDsLocked()
	r.flushed = true

	if r.metrics != nil {
		r.metrics.FlushDuration.Observe(time.Since(start).Seconds())
	}
	r.logger.Info("registry flushed",
		slog.Int("schemas", len(order)),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

// BulkDiscover filters a unit of code's exported bindings down to values
// that satisfy schema.Registrable and carry an id, and registers each.
// Conformance is an interface check, not structural sniffing. Keys are
// processed in sorted order so registration order is deterministic.
func (r *Registry) BulkDiscover(exports map[string]any) ([]*schema.Node, error) {
	keys := make([]string, 0, len(exports))
	for k := range exports {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var registered []*schema.Node
	for _, key := range keys {
		candidate, ok := exports[key].(schema.Registrable)
		if !ok || candidate.SchemaID() == "" {
			continue
		}
		n, err := r.Register(candidate.SchemaNode())
		if err != nil {
			return registered, fmt.Errorf("discovered binding %q: %w", key, err)
		}
		registered = append(registered, n)
	}
	return registered, nil
}

// Get returns the schema accepted under id, checking the pending queue,
// then the accepted map, then the engine.
func (r *Registry) Get(id string) (*schema.Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookupLocked(id)
}

// IsRegistered reports whether id is confirmed present in the engine,
// whether it got there through this registry or independently.
func (r *Registry) IsRegistered(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.knownLocked(id)
}

// Flushed reports whether the registry has flushed.
func (r *Registry) Flushed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushed
}

// CommitOrder returns the ids in the order they were committed to the
// engine.
func (r *Registry) CommitOrder() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.commitOrder...)
}

// Reports returns the duplicate reports accumulated so far.
func (r *Registry) Reports() []dedupe.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dedupe.Report(nil), r.reports...)
}

// Reset clears all registry state. Test isolation only; pair it with a
// fresh engine, since committed schemas cannot be withdrawn from one.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store = make(map[string]*schema.Node)
	r.registered = make(map[string]struct{})
	r.pending = make(map[string]*schema.Node)
	r.pendingIDs = nil
	r.flushed = false
	r.commitOrder = nil
	r.reports = nil
	if r.metrics != nil {
		r.metrics.PendingSchemas.Set(0)
		r.metrics.CommittedSchemas.Set(0)
	}
}

// prunePendingIDsLocked drops ids no longer in the pending map from the
// insertion-order slice, keeping the two views consistent after a partial
// flush.
func (r *Registry) prunePendingIDsLocked() {
	remaining := r.pendingIDs[:0]
	for _, id := range r.pendingIDs {
		if _, ok := r.pending[id]; ok {
			remaining = append(remaining, id)
		}
	}
	r.pendingIDs = remaining
	if r.metrics != nil {
		r.metrics.PendingSchemas.Set(float64(len(r.pending)))
	}
}

// lookupLocked resolves id against pending, then store, then the engine.
func (r *Registry) lookupLocked(id string) (*schema.Node, bool) {
	if n, ok := r.pending[id]; ok {
		return n, true
	}
	if n, ok := r.store[id]; ok {
		return n, true
	}
	return r.engine.GetByName(id)
}

// knownLocked reports whether id is already available in the engine.
func (r *Registry) knownLocked(id string) bool {
	if _, ok := r.registered[id]; ok {
		return true
	}
	_, ok := r.engine.GetByName(id)
	return ok
}

// commitLocked pushes one schema into the engine. Called either during
// flush or, once flushed, directly from Register. Post-flush commits
// verify the schema's references against what is already committed.
func (r *Registry) commitLocked(id string, n *schema.Node) error {
	if r.flushed {
		for _, dep := range schema.References(n) {
			if dep == id || r.knownLocked(dep) {
				continue
			}
			return &resolver.UnresolvedError{Referrer: id, Missing: dep}
		}
	}
	if err := r.engine.Add(n); err != nil {
		return fmt.Errorf("%w: id %q: %v", ErrEngineRejection, id, err)
	}
	r.registered[id] = struct{}{}
	r.commitOrder = append(r.commitOrder, id)
	if r.metrics != nil {
		r.metrics.CommittedSchemas.Set(float64(len(r.registered)))
	}
	return nil
}

func (r *Registry) count(outcome string) {
	if r.metrics != nil {
		r.metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (r *Registry) countFlushFailure(cause string) {
	if r.metrics != nil {
		r.metrics.FlushFailures.WithLabelValues(cause).Inc()
	}
}
