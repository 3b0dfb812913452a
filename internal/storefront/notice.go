package storefront

import (
	"fmt"
	"strconv"
)

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Failure classifies the error notices the storefront can raise.
type Failure int

const (
	NoFailure Failure = iota
	LoadFailure
	EmptyCartFailure
	StockConflictFailure
	CheckoutFailure
	LocalGuardFailure
	CheckoutBusyFailure
)

func (f Failure) String() string {
	switch f {
	case NoFailure:
		return "none"
	case LoadFailure:
		return "load"
	case EmptyCartFailure:
		return "empty_cart"
	case StockConflictFailure:
		return "stock_conflict"
	case CheckoutFailure:
		return "checkout"
	case LocalGuardFailure:
		return "local_guard"
	case CheckoutBusyFailure:
		return "checkout_busy"
	default:
		return "unknown"
	}
}

type Notice struct {
	Kind    NoticeKind
	Content string
	Failure Failure
}

// fail replaces the current notice with an error. Stock conflicts are kept:
// they are only cleared by Dismiss or a successful checkout.
func (s State) fail(f Failure, content string) State {
	next := s.clone()
	next.Notice = &Notice{Kind: NoticeError, Content: content, Failure: f}
	return next
}

// Dismiss clears the notice and the stock conflict list together.
func (s State) Dismiss() State {
	next := s.clone()
	next.Notice = nil
	next.StockConflicts = nil
	return next
}

// ConflictLines renders the stock conflicts for display.
func (s State) ConflictLines() []string {
	lines := make([]string, 0, len(s.StockConflicts))
	for _, c := range s.StockConflicts {
		name := "Product " + strconv.FormatInt(c.ProductID, 10)
		if c.ProductName != nil && *c.ProductName != "" {
			name = *c.ProductName
		}
		lines = append(lines, fmt.Sprintf("%s: only %d available.", name, c.Available))
	}
	return lines
}
