package console

import (
	"fmt"
	"io"
	"strings"

	"storefront/internal/storefront"
)

func Render(w io.Writer, s storefront.State) {
	var b strings.Builder

	fmt.Fprintf(&b, "== Product catalog ==  cart (%d)\n", s.CartItemCount())

	if s.Notice != nil {
		fmt.Fprintf(&b, "[%s] %s\n", s.Notice.Kind, s.Notice.Content)
	}
	if lines := s.ConflictLines(); len(lines) > 0 {
		b.WriteString("Unavailable items:\n")
		for _, l := range lines {
			fmt.Fprintf(&b, "  - %s\n", l)
		}
	}

	if s.Search != "" {
		fmt.Fprintf(&b, "search: %q\n", s.Search)
	}

	if s.Loading {
		b.WriteString("loading products...\n")
	} else {
		if len(s.Products) == 0 {
			b.WriteString("no products\n")
		}
		for _, p := range s.Products {
			status := "add to cart"
			if p.Stock <= 0 {
				status = "out of stock"
			}
			fmt.Fprintf(&b, "  #%-4d %-30s $ %8.2f  stock: %3d  [%s]\n", p.ID, p.Name, p.Price, max(p.Stock, 0), status)
		}
		fmt.Fprintf(&b, "page %d of %d\n", s.Page+1, s.TotalPages)
	}

	if s.CartOpen {
		b.WriteString("-- Cart --\n")
		if len(s.Cart) == 0 {
			b.WriteString("  cart is empty\n")
		}
		for _, l := range s.Cart {
			fmt.Fprintf(&b, "  #%-4d %-30s $ %8.2f x %d = $ %8.2f\n", l.ProductID, l.ProductName, l.Price, l.Quantity, l.Subtotal())
		}
		if len(s.Cart) > 0 {
			fmt.Fprintf(&b, "  total: $ %.2f\n", s.CartTotal())
		}
	}

	io.WriteString(w, b.String())
}
