// Package console is a line-oriented terminal front-end for the storefront.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/dto"
	"storefront/internal/storefront"
)

// Storefront is the subset of *storefront.View the console drives.
type Storefront interface {
	State() storefront.State
	Wait()
	FlushSearch() bool
	SetSearch(search string)
	NextPage()
	PrevPage()
	GoToPage(n int)
	AddToCart(p dto.Product)
	IncrementLine(productID int64)
	RemoveFromCart(productID int64)
	RemoveEntirely(productID int64)
	ToggleCart()
	Dismiss()
	Checkout(ctx context.Context) storefront.CheckoutResult
}

type Console struct {
	view   Storefront
	in     io.Reader
	out    io.Writer
	logger *zap.Logger
}

func New(view Storefront, in io.Reader, out io.Writer, logger *zap.Logger) *Console {
	return &Console{view: view, in: in, out: out, logger: logger}
}

// Run reads commands until quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	c.view.Wait()
	Render(c.out, c.view.State())
	c.prompt()

	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		quit, err := c.Execute(ctx, scanner.Text())
		if err != nil {
			fmt.Fprintln(c.out, err)
		}
		if quit {
			return nil
		}
		c.prompt()
	}
	return scanner.Err()
}

func (c *Console) prompt() {
	fmt.Fprint(c.out, "> ")
}

// Execute runs one command line and renders the settled state.
func (c *Console) Execute(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprint(c.out, helpText)
		return false, nil
	case "list":
	case "search":
		c.view.SetSearch(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0])))
		c.view.FlushSearch()
	case "next":
		c.view.NextPage()
	case "prev":
		c.view.PrevPage()
	case "page":
		n, err := intArg(args)
		if err != nil {
			return false, err
		}
		c.view.GoToPage(n - 1)
	case "add":
		id, err := idArg(args)
		if err != nil {
			return false, err
		}
		p, ok := c.view.State().Product(id)
		if !ok {
			return false, fmt.Errorf("product %d is not on this page", id)
		}
		c.view.AddToCart(p)
	case "inc":
		id, err := idArg(args)
		if err != nil {
			return false, err
		}
		c.view.IncrementLine(id)
	case "dec":
		id, err := idArg(args)
		if err != nil {
			return false, err
		}
		c.view.RemoveFromCart(id)
	case "remove":
		id, err := idArg(args)
		if err != nil {
			return false, err
		}
		c.view.RemoveEntirely(id)
	case "cart":
		c.view.ToggleCart()
	case "checkout":
		result := c.view.Checkout(ctx)
		c.logger.Debug("checkout finished", zap.Int("outcome", int(result.Outcome)))
	case "dismiss":
		c.view.Dismiss()
	default:
		return false, fmt.Errorf("unknown command %q, type help", cmd)
	}

	c.view.Wait()
	Render(c.out, c.view.State())
	return false, nil
}

func intArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one number")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", args[0])
	}
	return n, nil
}

func idArg(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected a product id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", args[0])
	}
	return id, nil
}

const helpText = `commands:
  list                 show the current page
  search <text>        search products by name
  next | prev          change page
  page <n>             jump to page n
  add <id>             add a product to the cart
  inc <id> | dec <id>  change a cart quantity
  remove <id>          remove a product from the cart
  cart                 open or close the cart
  checkout             place the order
  dismiss              clear messages
  quit
`
