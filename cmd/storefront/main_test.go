package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"storefront/config"
	"storefront/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func offlineConfig(backend, dir string) *config.Config {
	return &config.Config{
		Auth:        config.AuthConfig{BcryptCost: bcrypt.MinCost},
		Gateway:     config.GatewayConfig{BaseURL: "", Timeout: time.Second},
		Persistence: config.PersistenceConfig{Backend: backend, Dir: dir},
	}
}

func run(t *testing.T, cfg *config.Config, input string, args ...string) string {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp(func(ctx context.Context) (*session, error) {
		return newSession(ctx, cfg, util.GetLogger())
	})
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader(input)

	require.NoError(t, app.RunContext(context.Background(), append([]string{"storefront"}, args...)))
	assert.Empty(t, errOut.String())
	return out.String()
}

func TestHelpDoesNotOpenSession(t *testing.T) {
	opened := 0
	app := newApp(func(context.Context) (*session, error) {
		opened++
		return nil, nil
	})
	var out bytes.Buffer
	app.Writer = &out

	require.NoError(t, app.RunContext(context.Background(), []string{"storefront", "--help"}))
	assert.Contains(t, out.String(), "checkout")
	assert.Equal(t, 0, opened)
}

func TestShellCheckoutFlow(t *testing.T) {
	cfg := offlineConfig("memory", "")
	script := strings.Join([]string{
		"add 1",
		"add 1",
		"coupon NOVA10",
		"cart",
		"google --name Shopper shopper@example.com",
		"checkout --address 12-Main-St",
		"orders",
		"cart",
		"exit",
	}, "\n")

	out := run(t, cfg, script, "shell")

	assert.Contains(t, out, "added to cart!")
	assert.Contains(t, out, "Updated")
	assert.Contains(t, out, "Coupon NOVA10")
	assert.Contains(t, out, "Order ORD-")
	assert.Contains(t, out, "Processing")
	assert.Contains(t, out, "Your cart is empty.")
}

func TestFileBackendKeepsCartBetweenRuns(t *testing.T) {
	cfg := offlineConfig("file", t.TempDir())

	run(t, cfg, "", "add", "--qty", "3", "2")
	out := run(t, cfg, "", "cart")

	assert.Contains(t, out, "2 ")
	assert.Regexp(t, `\s3\s`, out)
	assert.NotContains(t, out, "Your cart is empty.")
}

func TestAddQtyAccumulates(t *testing.T) {
	cfg := offlineConfig("file", t.TempDir())

	run(t, cfg, "", "add", "--qty", "3", "2")
	run(t, cfg, "", "add", "--qty", "2", "2")
	out := run(t, cfg, "", "cart")

	assert.Regexp(t, `(?m)^2\s.*\s5\s+\d+\.\d{2}\s`, out)
}

func TestUnknownBackendFallsBackToMemory(t *testing.T) {
	cfg := offlineConfig("etcd", "")

	out := run(t, cfg, "", "health")
	assert.Contains(t, out, "status=mock")
	assert.Contains(t, out, "mock=true")
}
