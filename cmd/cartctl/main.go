// Command cartctl manages a storefront cart from the terminal and checks it
// out against the order API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"storefront/internal/cart"
	"storefront/internal/client"
	"storefront/internal/config"
	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
	"storefront/internal/infrastructure/logger"
	"storefront/internal/infrastructure/redis"
	"storefront/internal/tenant"
)

const usage = `usage: cartctl [flags] <command> [args]

commands:
  add <id> <name> <price> [quantity]   add a product, accumulating quantity
  set <id> <quantity>                  set a line's quantity (0 removes it)
  remove <id>                          remove a line
  clear                                empty the cart
  show                                 list lines and subtotal
  checkout                             place an order for the cart

flags:
`

type options struct {
	configPath string
	path       string
	backend    string
	dir        string
	serverURL  string
	logLevel   string
	image      string

	form    client.CheckoutForm
	email   string
	advance string
	note    string
}

func main() {
	opts := options{}
	flags := pflag.NewFlagSet("cartctl", pflag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	flags.StringVar(&opts.configPath, "config", "config.yaml", "optional config file")
	flags.StringVarP(&opts.path, "path", "p", "", "storefront path, e.g. /shop-a/products; its first segment selects the tenant")
	flags.StringVar(&opts.backend, "backend", "", "cart storage: file, redis or memory (default from CART_BACKEND)")
	flags.StringVar(&opts.dir, "dir", "", "cart directory for the file backend (default from CART_DIR)")
	flags.StringVar(&opts.serverURL, "server", "", "order API base URL (default from CLIENT_BASE_URL)")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	flags.StringVar(&opts.image, "image", "", "image reference for add")

	flags.StringVar(&opts.form.CustomerName, "name", "", "customer name")
	flags.StringVar(&opts.form.CustomerPhone, "phone", "", "customer phone")
	flags.StringVar(&opts.form.CustomerAddress, "address", "", "delivery address")
	flags.StringVar(&opts.email, "email", "", "customer email")
	flags.StringVar(&opts.form.CustomerDivision, "division", "", "delivery division")
	flags.StringVar(&opts.form.CustomerDistrict, "district", "", "delivery district")
	flags.BoolVar(&opts.form.ExpressDelivery, "express", false, "request express delivery")
	flags.StringVar(&opts.advance, "advance", "", "advance payment amount")
	flags.StringVar(&opts.form.PaymentMethod, "payment", "cash_on_delivery", "payment method")
	flags.StringVar(&opts.note, "note", "", "order note")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if flags.NArg() == 0 {
		flags.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, flags.Args(), os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, args []string, out io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	zapLogger, err := logger.NewConsole(opts.logLevel)
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	storage, closeStorage, err := openStorage(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer closeStorage()

	resolver := tenant.NewResolver()
	tenantID := resolver.Navigate(opts.path)
	if tenantID == tenant.Unset {
		zapLogger.Warn("no tenant in --path, cart changes will not be saved")
	}
	store := cart.NewStore(storage, resolver, zapLogger)

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "add":
		if len(rest) < 3 {
			return fmt.Errorf("add needs <id> <name> <price> [quantity]")
		}
		price, err := decimal.NewFromString(rest[2])
		if err != nil {
			return fmt.Errorf("invalid price %q", rest[2])
		}
		qty := 1
		if len(rest) > 3 {
			if qty, err = strconv.Atoi(rest[3]); err != nil {
				return fmt.Errorf("invalid quantity %q", rest[3])
			}
		}
		if err := store.Add(ctx, domain.LineItem{ID: rest[0], Name: rest[1], UnitPrice: price, Quantity: qty, ImageRef: opts.image}); err != nil {
			return err
		}
	case "set":
		if len(rest) != 2 {
			return fmt.Errorf("set needs <id> <quantity>")
		}
		qty, err := strconv.Atoi(rest[1])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", rest[1])
		}
		if err := store.UpdateQuantity(ctx, rest[0], qty); err != nil {
			return err
		}
	case "remove":
		if len(rest) != 1 {
			return fmt.Errorf("remove needs <id>")
		}
		if err := store.Remove(ctx, rest[0]); err != nil {
			return err
		}
	case "clear":
		if err := store.Clear(ctx); err != nil {
			return err
		}
	case "show":
	case "checkout":
		return checkout(ctx, cfg, opts, store, tenantID, zapLogger, out)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	return show(ctx, store, tenantID, out)
}

func openStorage(ctx context.Context, cfg *config.Config, opts options) (cart.Storage, func(), error) {
	backend := strings.ToLower(firstNonEmpty(opts.backend, cfg.Cart.Backend, "file"))
	switch backend {
	case "memory":
		return cart.NewMemoryStorage(), func() {}, nil
	case "file":
		fs, err := cart.NewFileStorage(firstNonEmpty(opts.dir, cfg.Cart.Dir))
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	case "redis":
		rc, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return cart.NewRedisStorage(rc, cfg.Cart.TTL), func() { _ = rc.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown cart backend %q", backend)
}

func checkout(ctx context.Context, cfg *config.Config, opts options, store *cart.Store, tenantID string, zapLogger *zap.Logger, out io.Writer) error {
	form := opts.form
	if opts.email != "" {
		form.CustomerEmail = &opts.email
	}
	if opts.note != "" {
		form.Note = &opts.note
	}
	if opts.advance != "" {
		advance, err := decimal.NewFromString(opts.advance)
		if err != nil {
			return fmt.Errorf("invalid advance %q", opts.advance)
		}
		form.AdvancePayment = &advance
	}

	api := client.NewOrderClient(firstNonEmpty(opts.serverURL, cfg.Client.BaseURL), cfg.Client.Timeout, nil, zapLogger)
	order, err := client.NewCheckout(api, store, zapLogger).Submit(ctx, tenantID, form)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "order %d placed (%s)\n", order.ID, order.Status)
	fmt.Fprintf(out, "subtotal %s  vat %s  delivery %s\n",
		order.SubTotal.StringFixed(2), order.VAT.StringFixed(2), order.DeliveryCharge.StringFixed(2))
	fmt.Fprintf(out, "total %s  advance %s  remaining %s\n",
		order.Total.StringFixed(2), order.AdvancePayment.StringFixed(2), order.Remaining.StringFixed(2))
	return nil
}

func show(ctx context.Context, store *cart.Store, tenantID string, out io.Writer) error {
	items := store.Items(ctx)
	label := tenantID
	if label == tenant.Unset {
		label = "(no store)"
	}
	fmt.Fprintf(out, "cart for %s\n", label)
	if len(items) == 0 {
		fmt.Fprintln(out, "  empty")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tQTY\tLINE")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			item.ID, item.Name, item.UnitPrice.StringFixed(2), item.Quantity, item.LineTotal().StringFixed(2))
	}
	fmt.Fprintf(tw, "\t\t\t\t%s\n", store.Subtotal(ctx).StringFixed(2))
	return tw.Flush()
}

// describe renders typed errors with their field or line details.
func describe(err error) string {
	if ve, ok := apperrors.IsValidationError(err); ok {
		parts := make([]string, 0, len(ve.Details))
		for _, d := range ve.Details {
			parts = append(parts, d.Message)
		}
		if len(parts) > 0 {
			return ve.Message + ": " + strings.Join(parts, "; ")
		}
		return ve.Message
	}
	if se, ok := apperrors.IsStockError(err); ok {
		parts := make([]string, 0, len(se.Failures))
		for _, f := range se.Failures {
			parts = append(parts, fmt.Sprintf("%s (%s)", f.ProductID, f.Reason))
		}
		return "some items cannot be ordered: " + strings.Join(parts, ", ")
	}
	return err.Error()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
