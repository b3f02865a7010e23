package storefront

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xenking/storefront/internal/catalogclient"
	"github.com/xenking/storefront/internal/clientstore"
	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/storage/jsonfile"
)

const testCatalog = `[
  {"id":"colt","name":"Colt","price":30,"reduction":10,"currency":"EUR","stock":5,
   "images":["/colt.png"],"characteristics":{"colors":["Rouge","Noir"],"character":"Colt","rarity":"Rare"}},
  {"id":"shelly","name":"Shelly","price":20,"reduction":0,"currency":"EUR","stock":1,
   "images":["/shelly.png"],"characteristics":{"colors":["Violet"],"character":"Shelly","rarity":"Commun"}}
]`

// --- Helpers ---

// startCatalog serves testCatalog from a temp products file and returns the
// server URL and the backing repository.
func startCatalog(t *testing.T) (string, *jsonfile.ProductRepository) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o600))
	repo, err := jsonfile.NewProductRepository(path)
	require.NoError(t, err)

	h, err := handler.NewHandler(handler.HandlerConfig{}, repo, address.NewSimulated(0), noop.NewMeterProvider())
	require.NoError(t, err)
	mux := http.NewServeMux()
	h.Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL, repo
}

func testConfig(url string) *Config {
	return &Config{
		CatalogURL:     url,
		Timeout:        time.Second,
		SearchDebounce: 0,
		Store:          StoreConfig{Backend: StoreMemory},
	}
}

// --- Tests ---

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(aconfig.Config{SkipFiles: true, SkipEnv: true, SkipFlags: true})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.CatalogURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 300*time.Millisecond, cfg.SearchDebounce)
	assert.Equal(t, StoreFile, cfg.Store.Backend)
	assert.Equal(t, "storefront", cfg.Store.Namespace)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "memory", mutate: func(c *Config) { c.Store.Backend = StoreMemory }},
		{name: "redis", mutate: func(c *Config) { c.Store.Backend = StoreRedis }},
		{name: "redis without addr", mutate: func(c *Config) {
			c.Store.Backend = StoreRedis
			c.Store.RedisAddr = ""
		}, wantErr: true},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Backend = "sqlite" }, wantErr: true},
		{name: "no catalog", mutate: func(c *Config) { c.CatalogURL = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				CatalogURL: "http://localhost:8080",
				Store:      StoreConfig{Backend: StoreFile, RedisAddr: "localhost:6379"},
			}
			tt.mutate(&cfg)
			if tt.wantErr {
				require.Error(t, cfg.Validate())
				return
			}
			require.NoError(t, cfg.Validate())
		})
	}
}

func TestSession_CheckoutEndToEnd(t *testing.T) {
	ctx := context.Background()
	url, repo := startCatalog(t)

	s, err := Open(ctx, zap.NewNop(), testConfig(url))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	products, err := s.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)

	_, err = s.Cart.Add(ctx, &products[0], "", 2)
	require.NoError(t, err)
	_, err = s.Cart.Add(ctx, &products[1], "Violet", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Cart.ItemCount())

	_, err = s.Checkout.Submit(ctx)
	require.ErrorIs(t, err, checkout.ErrValidation)
	assert.Equal(t, checkout.StateIdle, s.Checkout.State())

	addrs, err := s.Search.Search(ctx, "12 rue")
	require.NoError(t, err)
	require.Len(t, addrs, 3)
	require.NoError(t, s.Addresses.Select(ctx, addrs[0].Address))

	out, err := s.Checkout.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, checkout.StateConfirmed, s.Checkout.State())
	assert.NotEmpty(t, out.OrderRef)
	assert.Empty(t, out.Problems())
	assert.Zero(t, s.Cart.ItemCount())

	colt, err := repo.GetByID(ctx, "colt")
	require.NoError(t, err)
	assert.Equal(t, 3, colt.Stock)
	shelly, err := repo.GetByID(ctx, "shelly")
	require.NoError(t, err)
	assert.Equal(t, 0, shelly.Stock)
}

func TestSession_OversellIsReported(t *testing.T) {
	ctx := context.Background()
	url, repo := startCatalog(t)

	s, err := Open(ctx, zap.NewNop(), testConfig(url))
	require.NoError(t, err)

	shelly, err := repo.GetByID(ctx, "shelly")
	require.NoError(t, err)
	_, err = s.Cart.Add(ctx, shelly, "", 1)
	require.NoError(t, err)
	require.NoError(t, s.Addresses.Select(ctx, "1 rue des Brawlers"))

	// Another shopper buys the last unit first.
	_, err = repo.DecrementStock(ctx, "shelly", 1)
	require.NoError(t, err)

	out, err := s.Checkout.Submit(ctx)
	require.NoError(t, err)
	require.Len(t, out.Problems(), 1)
	assert.ErrorIs(t, out.Problems()[0].Err, product.ErrInsufficientStock)
	assert.Equal(t, checkout.StateConfirmed, s.Checkout.State())
}

func TestSession_Rehydrates(t *testing.T) {
	ctx := context.Background()
	store := clientstore.NewMemory()
	url, repo := startCatalog(t)
	catalog, err := catalogclient.New(url, time.Second)
	require.NoError(t, err)

	s, err := New(ctx, zap.NewNop(), store, catalog, 0)
	require.NoError(t, err)

	colt, err := repo.GetByID(ctx, "colt")
	require.NoError(t, err)
	_, err = s.Cart.Add(ctx, colt, "Noir", 1)
	require.NoError(t, err)
	_, err = s.Wishlist.Toggle(ctx, "shelly")
	require.NoError(t, err)
	require.NoError(t, s.Addresses.SetSave(ctx, true))
	require.NoError(t, s.Addresses.Select(ctx, "2 avenue Supercell"))

	again, err := New(ctx, zap.NewNop(), store, catalog, 0)
	require.NoError(t, err)
	require.Len(t, again.Cart.Lines(), 1)
	assert.Equal(t, "Noir", again.Cart.Lines()[0].Color)
	assert.True(t, again.Wishlist.Contains("shelly"))
	addr, ok := again.Addresses.Selected()
	assert.True(t, ok)
	assert.Equal(t, "2 avenue Supercell", addr)

	_, err = again.Refresh(ctx)
	require.NoError(t, err)
	view := again.Wishlist.SortedView("none")
	require.Len(t, view, 1)
	assert.Equal(t, "Shelly", view[0].Product.Name)
}

func TestSession_RefreshUnreachable(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s, err := Open(ctx, zap.NewNop(), testConfig(url))
	require.NoError(t, err)

	products, err := s.Refresh(ctx)
	require.Error(t, err)
	assert.True(t, catalogclient.IsTransport(err))
	assert.Empty(t, products)
	assert.NotNil(t, products)
}

func TestNew_CorruptCartStartsEmpty(t *testing.T) {
	ctx := context.Background()
	store := clientstore.NewMemory()
	require.NoError(t, store.Set(ctx, clientstore.KeyCart, []byte(`not json`)))
	catalog, err := catalogclient.New("http://127.0.0.1:1", time.Second)
	require.NoError(t, err)

	core, logs := observer.New(zap.WarnLevel)
	s, err := New(ctx, zap.New(core), store, catalog, 0)
	require.NoError(t, err)
	assert.Zero(t, s.Cart.Len())

	entries := logs.FilterMessage("Discarding corrupt stored value").All()
	require.Len(t, entries, 1)
	assert.Equal(t, clientstore.KeyCart, entries[0].ContextMap()["key"])
}

func TestOpen_FileStore(t *testing.T) {
	ctx := context.Background()
	url, repo := startCatalog(t)
	cfg := testConfig(url)
	cfg.Store = StoreConfig{Backend: StoreFile, Path: filepath.Join(t.TempDir(), "nested", "state.json")}

	s, err := Open(ctx, zap.NewNop(), cfg)
	require.NoError(t, err)
	colt, err := repo.GetByID(ctx, "colt")
	require.NoError(t, err)
	_, err = s.Cart.Add(ctx, colt, "", 1)
	require.NoError(t, err)

	again, err := Open(ctx, zap.NewNop(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Cart.ItemCount())
}
