package storefront

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"storefront/internal/debounce"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
)

const (
	DefaultPageSize       = 6
	DefaultSearchDebounce = 300 * time.Millisecond
)

type CatalogAPI interface {
	FetchProducts(ctx context.Context, search string, page, size int) (*dto.ProductPage, error)
}

type OrderAPI interface {
	PlaceOrder(ctx context.Context, req dto.OrderRequest) (*dto.OrderResponse, error)
}

type Options struct {
	PageSize       int
	SearchDebounce time.Duration
}

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeStockConflict
	OutcomeFailed
	OutcomeEmptyCart
	OutcomeBusy
)

type CheckoutResult struct {
	Outcome   Outcome
	Order     *dto.OrderResponse
	Conflicts []dto.StockError
}

// View is the storefront screen. Every state transition runs under one lock,
// so the view behaves like a single interaction thread; network exchanges run
// on their own goroutines and post results back through the same lock.
type View struct {
	catalog   CatalogAPI
	orders    OrderAPI
	logger    *zap.Logger
	pageSize  int
	debouncer *debounce.Debouncer

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	idle        *sync.Cond
	state       State
	loadSeq     uint64
	inflight    int
	checkingOut bool
}

func NewView(catalog CatalogAPI, orders OrderAPI, logger *zap.Logger, opts Options) *View {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.SearchDebounce <= 0 {
		opts.SearchDebounce = DefaultSearchDebounce
	}

	ctx, cancel := context.WithCancel(context.Background())
	v := &View{
		catalog:   catalog,
		orders:    orders,
		logger:    logger,
		pageSize:  opts.PageSize,
		debouncer: debounce.New(opts.SearchDebounce),
		ctx:       ctx,
		cancel:    cancel,
	}
	v.idle = sync.NewCond(&v.mu)
	return v
}

// Start issues the initial catalog load for the empty search.
func (v *View) Start() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.startLoadLocked()
}

// Close stops the debounce timer and cancels outstanding requests.
func (v *View) Close() {
	v.debouncer.Stop()
	v.cancel()
}

// State returns a snapshot of the current state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.clone()
}

// Wait blocks until no catalog load or checkout is in flight.
func (v *View) Wait() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for v.inflight > 0 {
		v.idle.Wait()
	}
}

// FlushSearch runs a pending debounced search immediately.
func (v *View) FlushSearch() bool {
	return v.debouncer.Flush()
}

func (v *View) SetSearch(search string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if search == v.state.Search {
		return
	}
	v.state = v.state.WithSearch(search)
	v.debouncer.Schedule(v.searchElapsed)
}

func (v *View) searchElapsed() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Page = 0
	v.startLoadLocked()
}

func (v *View) NextPage() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.goToPageLocked(v.state.Page + 1)
}

func (v *View) PrevPage() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.goToPageLocked(v.state.Page - 1)
}

func (v *View) GoToPage(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.goToPageLocked(n)
}

func (v *View) goToPageLocked(n int) {
	next, changed := v.state.WithPage(n)
	if !changed {
		return
	}
	v.state = next
	v.startLoadLocked()
}

func (v *View) AddToCart(p dto.Product) {
	v.apply(func(s State) State { return s.AddToCart(p) })
}

func (v *View) IncrementLine(productID int64) {
	v.apply(func(s State) State { return s.IncrementLine(productID) })
}

func (v *View) RemoveFromCart(productID int64) {
	v.apply(func(s State) State { return s.RemoveFromCart(productID) })
}

func (v *View) RemoveEntirely(productID int64) {
	v.apply(func(s State) State { return s.RemoveEntirely(productID) })
}

func (v *View) ToggleCart() {
	v.apply(State.ToggleCart)
}

func (v *View) Dismiss() {
	v.apply(State.Dismiss)
}

func (v *View) apply(transition func(State) State) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = transition(v.state)
}

func (v *View) startLoadLocked() {
	v.loadSeq++
	seq := v.loadSeq
	search, page := v.state.Search, v.state.Page

	v.state.Loading = true
	v.inflight++
	go v.load(seq, search, page)
}

func (v *View) load(seq uint64, search string, page int) {
	result, err := v.catalog.FetchProducts(v.ctx, search, page, v.pageSize)

	v.mu.Lock()
	defer v.mu.Unlock()
	defer v.doneLocked()

	if seq != v.loadSeq {
		v.logger.Debug("discarding superseded catalog load",
			zap.Uint64("seq", seq), zap.Uint64("latest", v.loadSeq))
		return
	}

	v.state.Loading = false
	if err != nil {
		v.logger.Error("loading products failed",
			zap.String("search", search), zap.Int("page", page), zap.Error(err))
		v.state = v.state.LoadFailed()
		return
	}
	v.state = v.state.ApplyCatalog(*result)
}

func (v *View) doneLocked() {
	v.inflight--
	if v.inflight == 0 {
		v.idle.Broadcast()
	}
}

// Checkout submits the cart as an order and blocks until the server answers.
func (v *View) Checkout(ctx context.Context) CheckoutResult {
	v.mu.Lock()
	if v.checkingOut {
		v.state = v.state.fail(CheckoutBusyFailure, MsgCheckoutBusy)
		v.mu.Unlock()
		return CheckoutResult{Outcome: OutcomeBusy}
	}
	if len(v.state.Cart) == 0 {
		v.state = v.state.fail(EmptyCartFailure, MsgEmptyCart)
		v.mu.Unlock()
		return CheckoutResult{Outcome: OutcomeEmptyCart}
	}
	req := v.state.OrderRequest()
	v.checkingOut = true
	v.inflight++
	v.mu.Unlock()

	order, err := v.orders.PlaceOrder(ctx, req)

	v.mu.Lock()
	defer v.mu.Unlock()
	defer v.doneLocked()
	v.checkingOut = false

	if err == nil && order == nil {
		err = apperrors.NewInternalError("empty order response", nil)
	}

	if err != nil {
		if se, ok := apperrors.IsStockConflictError(err); ok {
			v.logger.Warn("checkout rejected for stock", zap.Int("conflicts", len(se.Conflicts)))
			v.state = v.state.CheckoutConflicted(se.Conflicts)
			return CheckoutResult{Outcome: OutcomeStockConflict, Conflicts: se.Conflicts}
		}
		v.logger.Error("checkout failed", zap.Error(err))
		v.state = v.state.CheckoutFailed()
		return CheckoutResult{Outcome: OutcomeFailed}
	}

	v.logger.Info("order placed", zap.Int64("orderId", order.ID), zap.Float64("total", order.Total))
	v.state = v.state.CheckoutSucceeded(*order)
	v.startLoadLocked()
	return CheckoutResult{Outcome: OutcomeSuccess, Order: order}
}
