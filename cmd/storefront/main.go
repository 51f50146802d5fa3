// Command storefront is the NovaMart shopper client. It keeps the cart, wishlist,
// recently viewed items, locale and signed-in user in a durable key-value backend
// between runs, and talks to the NovaMart API through the gateway, which falls
// back to a local catalog whenever the API cannot answer.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"storefront/config"
	"storefront/internal/util"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger("cli"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := newApp(func(ctx context.Context) (*session, error) {
		return newSession(ctx, cfg, util.GetLogger())
	})
	if err := app.RunContext(ctx, os.Args); err != nil {
		util.GetLogger().Sugar().Errorf("storefront: %v", err)
		util.SyncLogger()
		os.Exit(1)
	}
}
