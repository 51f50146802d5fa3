package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"storefront/internal/models"
	"storefront/internal/oracle"
	"storefront/internal/storefront"

	"github.com/urfave/cli/v2"
)

// opener builds the session on first use so that --help never touches storage
type opener func(ctx context.Context) (*session, error)

func newApp(open opener) *cli.App {
	var sess *session

	current := func(c *cli.Context) (*session, error) {
		if sess != nil {
			return sess, nil
		}
		s, err := open(c.Context)
		if err != nil {
			return nil, err
		}
		sess = s
		return sess, nil
	}

	// with wraps an action so it runs against the session and reports notifications afterwards
	with := func(fn func(c *cli.Context, s *session) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			s, err := current(c)
			if err != nil {
				return err
			}
			err = fn(c, s)
			s.flushNotifications(c.App.Writer)
			return err
		}
	}

	app := &cli.App{
		Name:  "storefront",
		Usage: "NovaMart shopper client",
		After: func(c *cli.Context) error {
			// the shell re-enters Run; only the outermost run owns the session
			if sess != nil && shellDepth == 0 {
				sess.Close()
				sess = nil
			}
			return nil
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:  "products",
			Usage: "list the catalog",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "search", Aliases: []string{"q"}, Usage: "name or tag substring"},
				&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Value: models.CategoryAll},
			},
			Action: with(func(c *cli.Context, s *session) error {
				s.store.RefreshProducts(c.Context, c.String("search"), c.String("category"))
				st := s.store.State()
				printProducts(c.App.Writer, st.Products)
				if st.Mock {
					fmt.Fprintln(c.App.Writer, "(offline catalog)")
				}
				return nil
			}),
		},
		{
			Name:      "view",
			Usage:     "show a product and record the view",
			ArgsUsage: "PRODUCT_ID",
			Action: with(func(c *cli.Context, s *session) error {
				p, err := s.product(c.Context, c.Args().First())
				if err != nil {
					return err
				}
				s.store.TrackView(p.ID)
				printProduct(c.App.Writer, p)
				for _, r := range s.store.ProductReviews(p.ID) {
					fmt.Fprintf(c.App.Writer, "  %d/5 %s: %s\n", r.Rating, r.UserName, r.Comment)
				}
				return nil
			}),
		},
		{
			Name:      "add",
			Usage:     "add units of a product to the cart",
			ArgsUsage: "PRODUCT_ID",
			Flags:     []cli.Flag{&cli.IntFlag{Name: "qty", Value: 1, Usage: "units added on top of what the cart holds"}},
			Action: with(func(c *cli.Context, s *session) error {
				p, err := s.product(c.Context, c.Args().First())
				if err != nil {
					return err
				}
				s.store.AddToCart(p)
				if qty := c.Int("qty"); qty > 1 {
					for _, it := range s.store.State().Cart {
						if it.ID == p.ID {
							s.store.UpdateCartQuantity(p.ID, it.Quantity+qty-1)
						}
					}
				}
				return nil
			}),
		},
		{
			Name:      "remove",
			Usage:     "remove a product from the cart",
			ArgsUsage: "PRODUCT_ID",
			Action: with(func(c *cli.Context, s *session) error {
				s.store.RemoveFromCart(c.Args().First())
				return nil
			}),
		},
		{
			Name:      "qty",
			Usage:     "set the quantity of a cart line",
			ArgsUsage: "PRODUCT_ID QUANTITY",
			Action: with(func(c *cli.Context, s *session) error {
				n, err := strconv.Atoi(c.Args().Get(1))
				if err != nil {
					return fmt.Errorf("quantity must be a number: %w", err)
				}
				s.store.UpdateCartQuantity(c.Args().First(), n)
				return nil
			}),
		},
		{
			Name:  "cart",
			Usage: "show the cart and totals",
			Action: with(func(c *cli.Context, s *session) error {
				printCart(c.App.Writer, s.store.State(), s.store.Totals())
				return nil
			}),
		},
		{
			Name:  "clear",
			Usage: "empty the cart",
			Action: with(func(c *cli.Context, s *session) error {
				s.store.ClearCart()
				return nil
			}),
		},
		{
			Name:      "wishlist",
			Usage:     "toggle a product on the wishlist, or list it",
			ArgsUsage: "[PRODUCT_ID]",
			Action: with(func(c *cli.Context, s *session) error {
				if id := c.Args().First(); id != "" {
					s.store.ToggleWishlist(id)
					return nil
				}
				st := s.store.State()
				var saved []models.Product
				for _, id := range st.Wishlist {
					for _, p := range st.Products {
						if p.ID == id {
							saved = append(saved, p)
						}
					}
				}
				printProducts(c.App.Writer, saved)
				return nil
			}),
		},
		{
			Name:  "recent",
			Usage: "show recently viewed products",
			Action: with(func(c *cli.Context, s *session) error {
				printProducts(c.App.Writer, s.store.RecentlyViewedProducts())
				return nil
			}),
		},
		{
			Name:      "compare",
			Usage:     "toggle a product in the comparison; with two products selected, ask for a verdict",
			ArgsUsage: "PRODUCT_ID",
			Action: with(func(c *cli.Context, s *session) error {
				for _, id := range c.Args().Slice() {
					s.store.ToggleCompare(id)
				}
				ids := s.store.State().Compare
				if len(ids) < storefront.CompareLimit {
					return nil
				}
				a, err := s.product(c.Context, ids[0])
				if err != nil {
					return err
				}
				b, err := s.product(c.Context, ids[1])
				if err != nil {
					return err
				}
				v := s.oracle.CompareProducts(c.Context, a, b)
				fmt.Fprintln(c.App.Writer, v.Summary)
				for _, pt := range v.ComparisonPoints {
					fmt.Fprintf(c.App.Writer, "  %s: %s | %s\n", pt.Feature, pt.ProductA, pt.ProductB)
				}
				fmt.Fprintln(c.App.Writer, v.Verdict)
				return nil
			}),
		},
		{
			Name:      "coupon",
			Usage:     "apply a coupon code, or remove the active one with --remove",
			ArgsUsage: "CODE",
			Flags:     []cli.Flag{&cli.BoolFlag{Name: "remove"}},
			Action: with(func(c *cli.Context, s *session) error {
				if c.Bool("remove") {
					s.store.RemoveCoupon()
					return nil
				}
				if s.store.ApplyCoupon(c.Args().First()) {
					printCart(c.App.Writer, s.store.State(), s.store.Totals())
				}
				return nil
			}),
		},
		{
			Name:      "login",
			Usage:     "sign in",
			ArgsUsage: "EMAIL",
			Flags:     []cli.Flag{&cli.StringFlag{Name: "password", Aliases: []string{"p"}}},
			Action: with(func(c *cli.Context, s *session) error {
				s.store.Login(c.Context, c.Args().First(), c.String("password"))
				return nil
			}),
		},
		{
			Name:      "signup",
			Usage:     "create an account",
			ArgsUsage: "EMAIL",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "name", Aliases: []string{"n"}},
				&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Required: true},
			},
			Action: with(func(c *cli.Context, s *session) error {
				s.store.Signup(c.Context, c.String("name"), c.Args().First(), c.String("password"))
				return nil
			}),
		},
		{
			Name:      "google",
			Usage:     "sign in with a Google identity",
			ArgsUsage: "EMAIL",
			Flags:     []cli.Flag{&cli.StringFlag{Name: "name", Aliases: []string{"n"}}},
			Action: with(func(c *cli.Context, s *session) error {
				s.store.LoginWithGoogle(c.Context, c.Args().First(), c.String("name"))
				return nil
			}),
		},
		{
			Name:  "logout",
			Usage: "sign out; the cart is kept",
			Action: with(func(c *cli.Context, s *session) error {
				s.store.Logout()
				return nil
			}),
		},
		{
			Name:  "whoami",
			Usage: "show the signed-in user",
			Action: with(func(c *cli.Context, s *session) error {
				u := s.store.State().User
				if u == nil {
					fmt.Fprintln(c.App.Writer, "Not signed in.")
					return nil
				}
				fmt.Fprintf(c.App.Writer, "%s <%s> (%s)\n", u.Name, u.Email, u.Role)
				return nil
			}),
		},
		{
			Name:  "checkout",
			Usage: "place an order for the cart",
			Flags: []cli.Flag{&cli.StringFlag{Name: "address", Aliases: []string{"a"}}},
			Action: with(func(c *cli.Context, s *session) error {
				if s.store.State().User == nil {
					return errors.New("sign in before checking out")
				}
				if order := s.store.PlaceOrder(c.Context, c.String("address")); order != nil {
					fmt.Fprintf(c.App.Writer, "Order %s placed, total %.2f\n", order.ID, order.Total)
				}
				return nil
			}),
		},
		{
			Name:  "orders",
			Usage: "list your orders, or every order with --all (admin)",
			Flags: []cli.Flag{&cli.BoolFlag{Name: "all"}},
			Action: with(func(c *cli.Context, s *session) error {
				if !c.Bool("all") {
					printOrders(c.App.Writer, s.store.State().Orders)
					return nil
				}
				if !s.store.State().User.IsAdmin() {
					return errors.New("listing every order requires an admin account")
				}
				orders, err := s.gateway.ListAllOrders(c.Context)
				if err != nil {
					return err
				}
				printOrders(c.App.Writer, orders)
				return nil
			}),
		},
		{
			Name:      "status",
			Usage:     "set an order's status (admin)",
			ArgsUsage: "ORDER_ID STATUS",
			Action: with(func(c *cli.Context, s *session) error {
				status := strings.Join(c.Args().Tail(), " ")
				if !models.ValidOrderStatus(status) {
					return fmt.Errorf("status must be one of: %s", strings.Join(models.OrderStatuses, ", "))
				}
				s.store.UpdateOrderStatus(c.Context, c.Args().First(), status)
				return nil
			}),
		},
		{
			Name:      "review",
			Usage:     "review a product",
			ArgsUsage: "PRODUCT_ID COMMENT...",
			Flags:     []cli.Flag{&cli.IntFlag{Name: "rating", Aliases: []string{"r"}, Value: 5}},
			Action: with(func(c *cli.Context, s *session) error {
				name := "Guest"
				if u := s.store.State().User; u != nil {
					name = u.Name
				}
				s.store.AddReview(storefront.ReviewInput{
					ProductID: c.Args().First(),
					UserName:  name,
					Rating:    c.Int("rating"),
					Comment:   strings.Join(c.Args().Tail(), " "),
				})
				return nil
			}),
		},
		{
			Name:      "watch",
			Usage:     "get notified about price drops",
			ArgsUsage: "PRODUCT_ID",
			Action: with(func(c *cli.Context, s *session) error {
				s.store.WatchPrice(c.Args().First())
				return nil
			}),
		},
		{
			Name:      "locale",
			Usage:     "switch the display language (en, hi)",
			ArgsUsage: "LOCALE",
			Action: with(func(c *cli.Context, s *session) error {
				if !s.store.SetLocale(c.Args().First()) {
					return fmt.Errorf("unsupported locale %q", c.Args().First())
				}
				return nil
			}),
		},
		{
			Name:  "health",
			Usage: "report which backend is answering",
			Action: with(func(c *cli.Context, s *session) error {
				h, err := s.gateway.Health(c.Context)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "status=%s database=%s mock=%t\n", h.Status, h.Database, s.gateway.IsMock())
				return nil
			}),
		},
		{
			Name:  "seed",
			Usage: "regenerate the catalog (admin, destructive)",
			Action: with(func(c *cli.Context, s *session) error {
				if !s.store.State().User.IsAdmin() {
					return errors.New("seeding requires an admin account")
				}
				n, err := s.gateway.SeedCatalog(c.Context)
				if err != nil {
					return err
				}
				s.store.RefreshProducts(c.Context, "", models.CategoryAll)
				fmt.Fprintf(c.App.Writer, "Catalog seeded with %d products\n", n)
				return nil
			}),
		},
		oracleCommand(with),
		{
			Name:  "shell",
			Usage: "run commands interactively in one session",
			Action: with(func(c *cli.Context, s *session) error {
				return runShell(c)
			}),
		},
	}
	return app
}

// shellDepth is non-zero while a shell line runs
var shellDepth int

func runShell(c *cli.Context) error {
	scanner := bufio.NewScanner(c.App.Reader)
	fmt.Fprint(c.App.Writer, "> ")
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		switch {
		case len(fields) == 0:
		case fields[0] == "exit" || fields[0] == "quit":
			return nil
		case fields[0] == "shell":
			fmt.Fprintln(c.App.ErrWriter, "already in a shell")
		default:
			shellDepth++
			err := c.App.RunContext(c.Context, append([]string{c.App.Name}, fields...))
			shellDepth--
			if err != nil {
				fmt.Fprintf(c.App.ErrWriter, "error: %v\n", err)
			}
		}
		fmt.Fprint(c.App.Writer, "> ")
	}
	return scanner.Err()
}

func oracleCommand(with func(func(*cli.Context, *session) error) cli.ActionFunc) *cli.Command {
	return &cli.Command{
		Name:  "ai",
		Usage: "AI shopping assistant",
		Subcommands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "natural-language product search",
				ArgsUsage: "QUERY...",
				Action: with(func(c *cli.Context, s *session) error {
					query := strings.Join(c.Args().Slice(), " ")
					printProducts(c.App.Writer, s.oracle.SearchProducts(c.Context, query, s.store.State().Products))
					return nil
				}),
			},
			{
				Name:      "ask",
				Usage:     "ask the shopping assistant; it may add items to the cart",
				ArgsUsage: "QUESTION...",
				Action: with(func(c *cli.Context, s *session) error {
					st := s.store.State()
					advice := s.oracle.ShoppingAdvice(c.Context, strings.Join(c.Args().Slice(), " "), st.Products, st.Cart)
					fmt.Fprintln(c.App.Writer, advice.Text)
					for _, id := range advice.AddToCart {
						if p, err := s.product(c.Context, id); err == nil {
							s.store.AddToCart(p)
						}
					}
					return nil
				}),
			},
			{
				Name:      "bundle",
				Usage:     "suggest products that go with one",
				ArgsUsage: "PRODUCT_ID",
				Action: with(func(c *cli.Context, s *session) error {
					p, err := s.product(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					printProducts(c.App.Writer, s.oracle.SuggestBundle(c.Context, p, s.store.State().Products))
					return nil
				}),
			},
			{
				Name:      "reviews",
				Usage:     "summarize a product's reviews",
				ArgsUsage: "PRODUCT_ID",
				Action: with(func(c *cli.Context, s *session) error {
					p, err := s.product(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, s.oracle.SummarizeReviews(c.Context, p.Name, s.store.ProductReviews(p.ID)))
					return nil
				}),
			},
			{
				Name:      "consult",
				Usage:     "one turn of a guided consultation",
				ArgsUsage: "MESSAGE...",
				Action: with(func(c *cli.Context, s *session) error {
					history := []oracle.ChatTurn{{Role: "user", Content: strings.Join(c.Args().Slice(), " ")}}
					reply := s.oracle.Consult(c.Context, history, s.store.State().Products)
					if reply.Kind == oracle.ConsultQuestion {
						fmt.Fprintln(c.App.Writer, reply.Text)
						return nil
					}
					fmt.Fprintln(c.App.Writer, reply.Reasoning)
					for _, id := range reply.ProductIDs {
						if p, err := s.product(c.Context, id); err == nil {
							printProduct(c.App.Writer, p)
						}
					}
					return nil
				}),
			},
		},
	}
}
