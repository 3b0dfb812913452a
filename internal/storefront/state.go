package storefront

import (
	"fmt"
	"slices"

	"storefront/internal/dto"
)

const (
	MsgLoadFailed     = "failed to load products"
	MsgOutOfStock     = "product out of stock"
	MsgMaxQuantity    = "maximum quantity reached"
	MsgEmptyCart      = "empty cart"
	MsgStockConflict  = "some items lack stock"
	MsgCheckoutFailed = "failed to place order"
	MsgCheckoutBusy   = "checkout already in progress"
	msgOrderPlaced    = "order placed successfully! ID: %d"
)

// CartLine is one product in the cart. Stock is the product's remaining stock
// at the last sync and bounds the increment control.
type CartLine struct {
	ProductID   int64
	ProductName string
	Price       float64
	Quantity    int
	Stock       int
}

func (l CartLine) Subtotal() float64 {
	return l.Price * float64(l.Quantity)
}

// State is the whole storefront screen. Transitions are pure: every method
// returns a new State and leaves the receiver untouched.
type State struct {
	Products       []dto.Product
	Cart           []CartLine
	Search         string
	Page           int
	TotalPages     int
	TotalElements  int64
	Loading        bool
	CartOpen       bool
	Notice         *Notice
	StockConflicts []dto.StockError
}

func (s State) clone() State {
	next := s
	next.Products = slices.Clone(s.Products)
	next.Cart = slices.Clone(s.Cart)
	next.StockConflicts = slices.Clone(s.StockConflicts)
	if s.Notice != nil {
		n := *s.Notice
		next.Notice = &n
	}
	return next
}

func (s State) lineIndex(productID int64) int {
	return slices.IndexFunc(s.Cart, func(l CartLine) bool { return l.ProductID == productID })
}

func (s State) productIndex(productID int64) int {
	return slices.IndexFunc(s.Products, func(p dto.Product) bool { return p.ID == productID })
}

// Line returns the cart line for a product.
func (s State) Line(productID int64) (CartLine, bool) {
	if i := s.lineIndex(productID); i >= 0 {
		return s.Cart[i], true
	}
	return CartLine{}, false
}

// Product returns the displayed catalog entry for a product.
func (s State) Product(productID int64) (dto.Product, bool) {
	if i := s.productIndex(productID); i >= 0 {
		return s.Products[i], true
	}
	return dto.Product{}, false
}

// displayedStock is the mirrored remaining stock of p: the catalog entry when
// it is on the current page, otherwise what the cart line still allows.
func (s State) displayedStock(p dto.Product) int {
	if i := s.productIndex(p.ID); i >= 0 {
		return s.Products[i].Stock
	}
	if i := s.lineIndex(p.ID); i >= 0 {
		return s.Cart[i].Stock - s.Cart[i].Quantity
	}
	return p.Stock
}

func (s *State) adjustStock(productID int64, delta int) {
	if i := s.productIndex(productID); i >= 0 {
		s.Products[i].Stock += delta
	}
}

func (s State) AddToCart(p dto.Product) State {
	next := s.clone()
	available := next.displayedStock(p)

	i := next.lineIndex(p.ID)
	if i < 0 {
		if available <= 0 {
			return next.fail(LocalGuardFailure, MsgOutOfStock)
		}
		next.Cart = append(next.Cart, CartLine{
			ProductID:   p.ID,
			ProductName: p.Name,
			Price:       p.Price,
			Quantity:    1,
			Stock:       available,
		})
	} else {
		if available <= 0 {
			return next.fail(LocalGuardFailure, MsgMaxQuantity)
		}
		next.Cart[i].Quantity++
	}

	next.adjustStock(p.ID, -1)
	return next
}

// IncrementLine is the cart's "+" control, bounded by the line's stock snapshot.
func (s State) IncrementLine(productID int64) State {
	line, ok := s.Line(productID)
	if !ok {
		return s
	}
	if line.Quantity >= line.Stock {
		return s.fail(LocalGuardFailure, MsgMaxQuantity)
	}

	p, ok := s.Product(productID)
	if !ok {
		p = dto.Product{
			ID:     line.ProductID,
			Name:   line.ProductName,
			Price:  line.Price,
			Stock:  line.Stock,
			Active: true,
		}
	}
	return s.AddToCart(p)
}

func (s State) RemoveFromCart(productID int64) State {
	i := s.lineIndex(productID)
	if i < 0 {
		return s
	}

	next := s.clone()
	if next.Cart[i].Quantity > 1 {
		next.Cart[i].Quantity--
	} else {
		next.Cart = slices.Delete(next.Cart, i, i+1)
	}
	next.adjustStock(productID, 1)
	return next
}

func (s State) RemoveEntirely(productID int64) State {
	i := s.lineIndex(productID)
	if i < 0 {
		return s
	}

	next := s.clone()
	quantity := next.Cart[i].Quantity
	next.Cart = slices.Delete(next.Cart, i, i+1)
	next.adjustStock(productID, quantity)
	return next
}

func (s State) CartTotal() float64 {
	total := 0.0
	for _, l := range s.Cart {
		total += l.Subtotal()
	}
	return total
}

func (s State) CartItemCount() int {
	count := 0
	for _, l := range s.Cart {
		count += l.Quantity
	}
	return count
}

// ApplyCatalog replaces the product list with a freshly fetched page and
// re-establishes the stock mirror against the cart.
func (s State) ApplyCatalog(page dto.ProductPage) State {
	next := s.clone()
	next.Products = slices.Clone(page.Content)
	next.TotalPages = page.TotalPages
	next.TotalElements = page.TotalElements

	for pi := range next.Products {
		li := next.lineIndex(next.Products[pi].ID)
		if li < 0 {
			continue
		}
		next.Cart[li].Stock = next.Products[pi].Stock
		next.Products[pi].Stock -= next.Cart[li].Quantity
	}
	return next
}

func (s State) LoadFailed() State {
	return s.fail(LoadFailure, MsgLoadFailed)
}

// WithSearch records new search text and rewinds to the first page.
func (s State) WithSearch(search string) State {
	next := s.clone()
	next.Search = search
	next.Page = 0
	return next
}

// WithPage moves to page n bounded by the known page count and reports
// whether the page changed.
func (s State) WithPage(n int) (State, bool) {
	last := s.TotalPages - 1
	if n > last {
		n = last
	}
	if n < 0 {
		n = 0
	}
	if n == s.Page {
		return s, false
	}
	next := s.clone()
	next.Page = n
	return next, true
}

func (s State) ToggleCart() State {
	next := s.clone()
	next.CartOpen = !next.CartOpen
	return next
}

// OrderRequest serializes the cart. Prices stay on the client; the server
// prices the order.
func (s State) OrderRequest() dto.OrderRequest {
	items := make([]dto.OrderItemRequest, 0, len(s.Cart))
	for _, l := range s.Cart {
		items = append(items, dto.OrderItemRequest{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
		})
	}
	return dto.OrderRequest{Items: items}
}

func (s State) CheckoutSucceeded(order dto.OrderResponse) State {
	next := s.clone()
	next.Cart = nil
	next.StockConflicts = nil
	next.CartOpen = false
	next.Notice = &Notice{Kind: NoticeSuccess, Content: fmt.Sprintf(msgOrderPlaced, order.ID)}
	return next
}

func (s State) CheckoutConflicted(conflicts []dto.StockError) State {
	next := s.fail(StockConflictFailure, MsgStockConflict)
	next.StockConflicts = slices.Clone(conflicts)
	return next
}

func (s State) CheckoutFailed() State {
	return s.fail(CheckoutFailure, MsgCheckoutFailed)
}
