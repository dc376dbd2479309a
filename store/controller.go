// Package store holds the client-side recipe state and keeps it consistent
// with the remote recipe service.
package store

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"recipestore"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	opLoad   = "load"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

// errUnchanged short-circuits a local mutation that left the state as it was.
var errUnchanged = errors.New("state unchanged")

// State is a snapshot of the controller for rendering. Snapshots never alias
// controller internals.
type State struct {
	Collection recipestore.Collection
	Draft      recipestore.Draft
	Selected   *recipestore.Recipe
	FormOpen   bool
	DarkMode   bool
}

// Editing reports whether the edit view bound to Selected is visible.
func (s State) Editing() bool {
	return s.Selected != nil
}

func (s State) clone() State {
	out := s
	out.Collection = s.Collection.Clone()
	if s.Selected != nil {
		sel := *s.Selected
		out.Selected = &sel
	}
	return out
}

type Option func(*Controller)

// WithOperationLogger routes operation outcomes to l in addition to slog.
func WithOperationLogger(l recipestore.OperationLogger) Option {
	return func(c *Controller) { c.opLog = l }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Controller) { c.tracerProvider = tp }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Controller) { c.meterProvider = mp }
}

// Controller owns the fetched collection, the creation draft, the record under
// edit and the form flags. All methods are safe for concurrent use; the state
// lock is never held across a network call, so edits may continue while a
// submit is in flight.
type Controller struct {
	svc            recipestore.RecipeService
	opLog          recipestore.OperationLogger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	metrics        *controllerMetrics

	initOnce sync.Once
	initErr  error

	mu         sync.Mutex
	collection recipestore.Collection
	draft      recipestore.Draft
	selected   *recipestore.Recipe
	formOpen   bool
	darkMode   bool

	// issuedLoads numbers every Load at issue time; appliedLoad is the number
	// of the load whose result currently backs collection.
	issuedLoads uint64
	appliedLoad uint64

	listeners    map[int]func(State)
	nextListener int
}

func New(svc recipestore.RecipeService, opts ...Option) *Controller {
	c := &Controller{
		svc:            svc,
		opLog:          recipestore.NewNoOpOperationLogger(),
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		collection:     recipestore.Collection{},
		listeners:      make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.tracer = c.tracerProvider.Tracer(recipestore.TracerNameController)
	c.metrics = newControllerMetrics(c.meterProvider.Meter(recipestore.MeterNameController))
	return c
}

// Init performs the initial load. Only the first call reaches the service.
func (c *Controller) Init(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.Load(ctx)
	})
	return c.initErr
}

// State returns a deep copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every state transition.
// The returned function removes the subscription.
func (c *Controller) Subscribe(fn func(State)) (cancel func()) {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Load fetches the full collection and replaces the local one on success.
// A result is dropped when a load issued later has already been applied.
// On failure the collection is left untouched.
func (c *Controller) Load(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "Controller.Load")
	defer span.End()
	started := time.Now()

	c.mu.Lock()
	c.issuedLoads++
	seq := c.issuedLoads
	c.mu.Unlock()
	span.SetAttributes(attribute.Int64("load.sequence", int64(seq)))

	col, err := c.svc.List(ctx)
	entry := recipestore.NewOperationLog(opLoad, started, err)
	entry.Sequence = seq
	if err != nil {
		c.fail(ctx, span, entry, err)
		return err
	}

	c.mu.Lock()
	stale := seq <= c.appliedLoad
	if !stale {
		c.collection = col.Clone()
		c.appliedLoad = seq
	}
	state := c.snapshotLocked()
	c.mu.Unlock()

	entry.Records = col.Len()
	entry.Stale = stale
	span.SetAttributes(
		attribute.Int("collection.records", entry.Records),
		attribute.Bool("load.stale", stale),
	)
	c.succeed(ctx, entry)
	c.metrics.observeLoad(ctx, entry.Records, stale)

	if stale {
		slog.Info("CONTROLLER: Discarded stale load", "sequence", seq)
		return nil
	}
	c.notify(state)
	return nil
}

// UpdateDraftField sets one field of the draft. Values are not validated.
func (c *Controller) UpdateDraftField(field recipestore.Field, value string) error {
	return c.mutate(func() error {
		return c.draft.Set(field, value)
	})
}

// Create submits the draft as a new record. On success the draft is reset and
// the collection refreshed; the new record only appears once the refresh
// lands. On failure the draft is kept for a retry.
func (c *Controller) Create(ctx context.Context) (recipestore.Recipe, error) {
	ctx, span := c.tracer.Start(ctx, "Controller.Create")
	defer span.End()
	started := time.Now()

	c.mu.Lock()
	draft := c.draft
	c.mu.Unlock()

	created, err := c.svc.Create(ctx, draft)
	entry := recipestore.NewOperationLog(opCreate, started, err)
	if err != nil {
		c.fail(ctx, span, entry, err)
		return recipestore.Recipe{}, err
	}
	entry.RecipeID = created.ID
	span.SetAttributes(attribute.String("recipe.id", created.ID))
	c.succeed(ctx, entry)

	c.mutate(func() error { // nolint: errcheck
		c.draft = recipestore.Draft{}
		return nil
	})

	c.refresh(ctx)
	return created, nil
}

// Select copies r into the edit buffer, replacing any earlier selection.
func (c *Controller) Select(r recipestore.Recipe) {
	c.mutate(func() error { // nolint: errcheck
		sel := r
		c.selected = &sel
		return nil
	})
}

// Deselect closes the edit view without submitting it.
func (c *Controller) Deselect() {
	c.mutate(func() error { // nolint: errcheck
		if c.selected == nil {
			return errUnchanged
		}
		c.selected = nil
		return nil
	})
}

// UpdateSelectedField sets one field of the selected record. It is a no-op
// when nothing is selected.
func (c *Controller) UpdateSelectedField(field recipestore.Field, value string) error {
	return c.mutate(func() error {
		if c.selected == nil {
			slog.Debug("CONTROLLER: Ignoring edit without selection", "field", field)
			return errUnchanged
		}
		return c.selected.Set(field, value)
	})
}

// CommitUpdate submits the selected record as an update. On success the
// selection is cleared and the collection refreshed; on failure the selection
// is kept for a retry.
func (c *Controller) CommitUpdate(ctx context.Context) (recipestore.Recipe, error) {
	ctx, span := c.tracer.Start(ctx, "Controller.CommitUpdate")
	defer span.End()
	started := time.Now()

	rec, ok := c.selection()
	if !ok {
		return recipestore.Recipe{}, recipestore.ErrNoSelection
	}
	span.SetAttributes(attribute.String("recipe.id", rec.ID))

	updated, err := c.svc.Update(ctx, rec)
	entry := recipestore.NewOperationLog(opUpdate, started, err)
	entry.RecipeID = rec.ID
	if err != nil {
		c.fail(ctx, span, entry, err)
		return recipestore.Recipe{}, err
	}
	c.succeed(ctx, entry)

	c.clearSelection(rec.ID)
	c.refresh(ctx)
	return updated, nil
}

// Delete removes the selected record remotely, then clears the selection and
// refreshes the collection.
func (c *Controller) Delete(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "Controller.Delete")
	defer span.End()
	started := time.Now()

	rec, ok := c.selection()
	if !ok {
		return recipestore.ErrNoSelection
	}
	span.SetAttributes(attribute.String("recipe.id", rec.ID))

	err := c.svc.Delete(ctx, rec.ID)
	entry := recipestore.NewOperationLog(opDelete, started, err)
	entry.RecipeID = rec.ID
	if err != nil {
		c.fail(ctx, span, entry, err)
		return err
	}
	c.succeed(ctx, entry)

	c.clearSelection(rec.ID)
	c.refresh(ctx)
	return nil
}

// ToggleCreateForm flips create-form visibility. The draft is kept.
func (c *Controller) ToggleCreateForm() {
	c.mutate(func() error { // nolint: errcheck
		c.formOpen = !c.formOpen
		return nil
	})
}

// DiscardDraft closes the create form and resets the draft to the empty form.
func (c *Controller) DiscardDraft() {
	c.mutate(func() error { // nolint: errcheck
		c.formOpen = false
		c.draft = recipestore.Draft{}
		return nil
	})
}

func (c *Controller) ToggleTheme() {
	c.mutate(func() error { // nolint: errcheck
		c.darkMode = !c.darkMode
		return nil
	})
}

func (c *Controller) selection() (recipestore.Recipe, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return recipestore.Recipe{}, false
	}
	return *c.selected, true
}

// clearSelection drops the selection if it still refers to id. A record
// selected while the request was in flight survives.
func (c *Controller) clearSelection(id string) {
	c.mutate(func() error { // nolint: errcheck
		if c.selected == nil || c.selected.ID != id {
			return errUnchanged
		}
		c.selected = nil
		return nil
	})
}

// refresh reloads after a successful write. Its failure is already logged by
// Load and does not undo the write.
func (c *Controller) refresh(ctx context.Context) {
	if err := c.Load(ctx); err != nil {
		slog.Warn("CONTROLLER: Refresh after write failed", "error", err)
	}
}

// mutate applies fn under the state lock and notifies subscribers unless fn
// fails or reports errUnchanged.
func (c *Controller) mutate(fn func() error) error {
	c.mu.Lock()
	if err := fn(); err != nil {
		c.mu.Unlock()
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	state := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(state)
	return nil
}

func (c *Controller) snapshotLocked() State {
	s := State{
		Collection: c.collection,
		Draft:      c.draft,
		Selected:   c.selected,
		FormOpen:   c.formOpen,
		DarkMode:   c.darkMode,
	}
	return s.clone()
}

func (c *Controller) notify(state State) {
	c.mu.Lock()
	ids := slices.Sorted(maps.Keys(c.listeners))
	fns := make([]func(State), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(state.clone())
	}
}

func (c *Controller) succeed(ctx context.Context, entry recipestore.OperationLog) {
	slog.Info("CONTROLLER: Operation completed",
		"operation", entry.Operation,
		"duration", entry.Duration,
		"recipe_id", entry.RecipeID,
		"records", entry.Records,
	)
	c.metrics.observe(ctx, entry)
	c.logOperation(entry)
}

func (c *Controller) fail(ctx context.Context, span trace.Span, entry recipestore.OperationLog, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, entry.Operation+" failed")
	slog.Error("CONTROLLER: Operation failed",
		"operation", entry.Operation,
		"error_kind", entry.ErrorKind,
		"recipe_id", entry.RecipeID,
		"error", err,
	)
	c.metrics.observe(ctx, entry)
	c.logOperation(entry)
}

func (c *Controller) logOperation(entry recipestore.OperationLog) {
	if err := c.opLog.LogOperation(entry); err != nil {
		slog.Warn("CONTROLLER: Failed to record operation", "operation", entry.Operation, "error", err)
	}
}
