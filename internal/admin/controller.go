// Package admin coordinates the admin console: which view is showing, the
// product list, the product form and the remote calls behind them.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iyhunko/storefront-admin/internal/cache"
	"github.com/iyhunko/storefront-admin/internal/form"
	"github.com/iyhunko/storefront-admin/internal/metrics"
	"github.com/iyhunko/storefront-admin/internal/model"
	"github.com/iyhunko/storefront-admin/internal/session"
	"github.com/iyhunko/storefront-admin/internal/storeapi"
	"github.com/iyhunko/storefront-admin/internal/view"
)

// ErrNotFound is returned when an operation names a product the cache does not hold.
var ErrNotFound = errors.New("product not found")

// View is the screen the admin console is showing.
type View string

const (
	ListView View = "list"
	AddView  View = "add-form"
	EditView View = "edit-form"
)

// RemoteStore is the part of the remote store client the controller needs.
type RemoteStore interface {
	ListProducts(ctx context.Context, token string) ([]model.Product, error)
	CreateProduct(ctx context.Context, payload model.ProductPayload, token string) (model.Product, error)
	UpdateProduct(ctx context.Context, id int64, payload model.ProductPayload, token string) (model.Product, error)
	DeleteProduct(ctx context.Context, id int64, token string) error
}

// Auditor records confirmed product mutations.
type Auditor interface {
	Record(ctx context.Context, eventType string, p model.Product) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithAuditor records every confirmed mutation with a.
func WithAuditor(a Auditor) Option {
	return func(c *Controller) { c.auditor = a }
}

// WithClock overrides the time source used for last-updated stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// FormState is a read-only copy of the product form.
type FormState struct {
	Mode    form.Mode         `json:"mode"`
	Draft   form.Draft        `json:"draft"`
	Errors  map[string]string `json:"errors"`
	General string            `json:"general,omitempty"`
}

// State is what the console renders besides the product list.
type State struct {
	View       View             `json:"view"`
	SignedIn   bool             `json:"signed_in"`
	Username   string           `json:"username,omitempty"`
	Categories []model.Category `json:"categories"`
	Form       FormState        `json:"form"`
}

// Controller is safe for concurrent use. Its lock is never held across a
// remote call.
type Controller struct {
	mu      sync.Mutex
	view    View
	form    *form.Session
	store   RemoteStore
	session *session.Session
	cache   *cache.Cache
	list    *view.Projection
	auditor Auditor
	now     func() time.Time
}

// NewController wires a controller to its collaborators. Clearing the session
// empties the cache and closes any open form.
func NewController(store RemoteStore, sess *session.Session, c *cache.Cache, opts ...Option) *Controller {
	listState := view.DefaultState()
	listState.IncludeUnavailable = true

	ctrl := &Controller{
		view:    ListView,
		form:    form.NewSession(),
		store:   store,
		session: sess,
		cache:   c,
		list:    view.NewProjection(c, listState),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(ctrl)
	}

	sess.OnClear(func() {
		c.Clear()
		ctrl.mu.Lock()
		ctrl.form = form.NewSession()
		ctrl.view = ListView
		ctrl.mu.Unlock()
	})
	return ctrl
}

// Close detaches the list projection from the cache.
func (c *Controller) Close() {
	c.list.Close()
}

// State returns the current view and form state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		View:       c.view,
		SignedIn:   c.session.SignedIn(),
		Username:   c.session.Username(),
		Categories: c.session.Categories(),
		Form: FormState{
			Mode:    c.form.Mode(),
			Draft:   c.form.Draft(),
			Errors:  c.form.Errors(),
			General: c.form.General(),
		},
	}
}

// Products returns the admin list as currently filtered and sorted.
func (c *Controller) Products() []model.Product {
	return c.list.Current()
}

// Pending reports whether product id carries a local change the remote store
// has not confirmed.
func (c *Controller) Pending(id int64) bool {
	return c.cache.IsOptimistic(id)
}

// ListState returns the admin list's filter and sort state.
func (c *Controller) ListState() view.State {
	return c.list.State()
}

// UpdateListState applies fn to the admin list's filter and sort state.
func (c *Controller) UpdateListState(fn func(view.State) (view.State, error)) (view.State, error) {
	return c.list.UpdateState(fn)
}

// Refresh replaces the cache with the remote store's product list.
func (c *Controller) Refresh(ctx context.Context) error {
	token := c.session.Token()
	if token == "" {
		return session.ErrSignedOut
	}

	ticket := c.cache.Begin()
	products, err := c.store.ListProducts(ctx, token)
	if err != nil {
		if storeapi.KindOf(err) == storeapi.KindUnauthorized {
			c.session.Clear()
		}
		slog.Warn("Failed to load products", slog.Any("err", err))
		return err
	}
	if !c.cache.LoadAt(ticket, products) {
		slog.Debug("Dropped stale product list", slog.Int("count", len(products)))
		return nil
	}
	slog.Debug("Product list loaded", slog.Int("count", len(products)))
	return nil
}

// OpenAdd shows the create form. Categories are fetched first if the session
// has none yet; a failure there leaves the category unset.
func (c *Controller) OpenAdd(ctx context.Context) error {
	if !c.session.SignedIn() {
		return session.ErrSignedOut
	}
	c.ensureCategories(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.form.OpenCreate(c.session.Categories()); err != nil {
		return err
	}
	c.view = AddView
	slog.Debug("Opened create form")
	return nil
}

// OpenEdit shows the edit form for a cached product.
func (c *Controller) OpenEdit(ctx context.Context, id int64) error {
	if !c.session.SignedIn() {
		return session.ErrSignedOut
	}
	p, ok := c.cache.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	c.ensureCategories(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.form.OpenEdit(p, c.session.Categories()); err != nil {
		return err
	}
	c.view = EditView
	slog.Debug("Opened edit form", slog.Int64("product_id", id))
	return nil
}

func (c *Controller) ensureCategories(ctx context.Context) {
	if c.session.CategoriesLoaded() {
		return
	}
	if err := c.session.LoadCategories(ctx); err != nil {
		slog.Warn("Failed to load categories", slog.Any("err", err))
	}
}

// EditField replaces one draft field.
func (c *Controller) EditField(field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form.SetField(field, value)
}

// SetImage attaches an image to the draft.
func (c *Controller) SetImage(img model.Image) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form.SetImage(img)
}

// Cancel closes the form and returns to the list.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.form.Cancel(); err != nil {
		return err
	}
	c.view = ListView
	return nil
}

// Submit validates the open form and sends it to the remote store. Local
// validation failures return form.ErrInvalid without a remote call. On
// success the cache is updated and the list is shown again.
func (c *Controller) Submit(ctx context.Context) (model.Product, error) {
	c.mu.Lock()
	f := c.form
	mode := f.Mode()
	draft := f.Draft()
	payload, err := f.Submit(c.now())
	c.mu.Unlock()
	if err != nil {
		return model.Product{}, err
	}

	token := c.session.Token()
	if token == "" {
		c.submitFailed(f, session.ErrSignedOut)
		return model.Product{}, session.ErrSignedOut
	}

	ticket := c.cache.Begin()
	var saved model.Product
	if mode == form.Creating {
		saved, err = c.store.CreateProduct(ctx, payload, token)
	} else {
		saved, err = c.store.UpdateProduct(ctx, draft.ProductID, payload, token)
	}
	if err != nil {
		c.submitFailed(f, err)
		return model.Product{}, c.failed(ctx, "submit", err)
	}

	c.mu.Lock()
	// a sign-out during the call replaces the form; leave the new one alone
	if c.form == f {
		f.Succeed()
		c.view = ListView
	}
	c.mu.Unlock()

	if mode == form.Creating {
		return c.created(ctx, ticket, payload, saved)
	}
	return c.updated(ctx, ticket, draft, payload, saved), nil
}

func (c *Controller) created(ctx context.Context, ticket cache.Ticket, payload model.ProductPayload, saved model.Product) (model.Product, error) {
	metrics.ProductsCreated.Inc()
	if saved.ID == 0 {
		// the server confirmed without echoing the product; only a reload can tell its id
		slog.Debug("Create response carried no product, reloading")
		if err := c.Refresh(ctx); err != nil {
			slog.Warn("Failed to reload after create", slog.Any("err", err))
		}
		c.record(ctx, model.EventProductCreated, c.findCreated(payload))
		return saved, nil
	}
	c.cache.UpsertAt(ticket, saved)
	c.record(ctx, model.EventProductCreated, saved)
	slog.Debug("Product created", slog.Int64("product_id", saved.ID))
	return saved, nil
}

// findCreated returns the newest cached product named like the payload, or
// the payload itself with no id when the reload did not surface one.
func (c *Controller) findCreated(payload model.ProductPayload) model.Product {
	found := payload.Apply(model.Product{})
	for _, p := range c.cache.Snapshot() {
		if p.Name == payload.Name && p.ID > found.ID {
			found = p
		}
	}
	return found
}

func (c *Controller) updated(ctx context.Context, ticket cache.Ticket, draft form.Draft, payload model.ProductPayload, saved model.Product) model.Product {
	metrics.ProductsUpdated.Inc()
	if saved.ID == 0 {
		base, ok := c.cache.Get(draft.ProductID)
		if !ok {
			base = model.Product{ID: draft.ProductID, Image: draft.ImageRef}
		}
		local := payload.Apply(base)
		c.cache.UpsertOptimisticAt(ticket, local)
		c.record(ctx, model.EventProductUpdated, local)
		return local
	}
	c.cache.UpsertAt(ticket, saved)
	c.record(ctx, model.EventProductUpdated, saved)
	slog.Debug("Product updated", slog.Int64("product_id", saved.ID))
	return saved
}

func (c *Controller) submitFailed(f *form.Session, err error) {
	fields := storeapi.FieldErrors(err)
	general := ""
	if len(fields) == 0 {
		general = Describe(err).Message
	}
	c.mu.Lock()
	f.Fail(fields, general)
	c.mu.Unlock()
}

// Delete removes a product remotely and, once confirmed, from the cache.
// Any earlier write for the id that completes afterwards is discarded.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	token := c.session.Token()
	if token == "" {
		return session.ErrSignedOut
	}
	existing, _ := c.cache.Get(id)

	if err := c.store.DeleteProduct(ctx, id, token); err != nil {
		return c.failed(ctx, "delete", err)
	}
	c.cache.Remove(id)
	metrics.ProductsDeleted.Inc()

	if existing.ID == 0 {
		existing.ID = id
	}
	c.record(ctx, model.EventProductDeleted, existing)
	slog.Debug("Product deleted", slog.Int64("product_id", id))
	return nil
}

// ToggleAvailability flips a product's availability in the cache at once and
// then persists it. The local record stays tagged optimistic until the remote
// store confirms, so a failed persist is corrected by the next full load.
func (c *Controller) ToggleAvailability(ctx context.Context, id int64) (model.Product, error) {
	token := c.session.Token()
	if token == "" {
		return model.Product{}, session.ErrSignedOut
	}
	p, ok := c.cache.Get(id)
	if !ok {
		return model.Product{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	p.Available = !p.Available
	p.Touch(c.now())
	c.cache.UpsertOptimistic(p)

	ticket := c.cache.Begin()
	saved, err := c.store.UpdateProduct(ctx, id, payloadOf(p), token)
	if err != nil {
		return p, c.failed(ctx, "toggle availability", err)
	}
	if saved.ID == 0 {
		saved = p
	}
	c.cache.UpsertAt(ticket, saved)
	metrics.ProductsUpdated.Inc()
	c.record(ctx, model.EventAvailabilityToggle, saved)
	slog.Debug("Product availability toggled",
		slog.Int64("product_id", id),
		slog.Bool("available", saved.Available),
	)
	return saved, nil
}

func payloadOf(p model.Product) model.ProductPayload {
	return model.ProductPayload{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Quantity:    p.Quantity,
		CategoryID:  p.Category.ID,
		Available:   p.Available,
		LastUpdated: p.LastUpdated,
	}
}

// failed applies the side effects of a remote failure and returns err.
// Unauthorized signs out; NotFound reloads the list.
func (c *Controller) failed(ctx context.Context, op string, err error) error {
	switch storeapi.KindOf(err) {
	case storeapi.KindUnauthorized:
		slog.Info("Credentials rejected, signing out", slog.String("op", op))
		c.session.Clear()
	case storeapi.KindNotFound:
		slog.Info("Product vanished remotely, reloading", slog.String("op", op))
		if rerr := c.Refresh(ctx); rerr != nil {
			slog.Warn("Failed to reload after not found", slog.Any("err", rerr))
		}
	default:
		slog.Warn("Remote operation failed", slog.String("op", op), slog.Any("err", err))
	}
	return err
}

func (c *Controller) record(ctx context.Context, eventType string, p model.Product) {
	if c.auditor == nil {
		return
	}
	if err := c.auditor.Record(ctx, eventType, p); err != nil {
		slog.Error("Failed to record audit event",
			slog.String("type", eventType),
			slog.Int64("product_id", p.ID),
			slog.Any("err", err),
		)
	}
}
