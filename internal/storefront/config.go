package storefront

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Client persistence backends.
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds the shop client configuration. It is loaded from YAML files
// and STOREFRONT_ environment variables; command-line flags are applied on
// top by the CLI.
type Config struct {
	CatalogURL     string        `default:"http://localhost:8080" usage:"Catalog Store base URL"`
	Timeout        time.Duration `default:"5s" usage:"Catalog request timeout"`
	SearchDebounce time.Duration `default:"300ms" usage:"Address search quiet period"`
	LogLevel       string        `default:"warn" usage:"Log level: debug, info, warn or error"`
	Store          StoreConfig
}

// StoreConfig selects where the cart, wishlist and saved address live.
type StoreConfig struct {
	Backend string `default:"file" usage:"Persistence backend: file, memory or redis"`
	// Path defaults to $HOME/.storefront/state.json.
	Path      string `default:"" usage:"State file for the file backend"`
	RedisAddr string `default:"localhost:6379" usage:"Redis address"`
	RedisDB   int    `default:"0" usage:"Redis database"`
	// Namespace isolates one shopper's keys inside a shared Redis.
	Namespace string `default:"storefront" usage:"Redis key namespace"`
}

// LoadConfig reads storefront.yaml, then $HOME/.storefront/config.yaml, then
// the environment.
func LoadConfig() (*Config, error) {
	files := []string{"storefront.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".storefront", "config.yaml"))
	}
	return loadConfig(aconfig.Config{
		EnvPrefix: "STOREFRONT",
		SkipFlags: true,
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(acfg aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, acfg).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	return &cfg, nil
}

// Validate checks the persistence settings.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreFile, StoreMemory:
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("redis address is required for the redis store")
		}
	default:
		return errors.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.CatalogURL == "" {
		return errors.New("catalog URL is required")
	}
	return nil
}

// statePath resolves the file backend location.
func (c *Config) statePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home directory")
	}
	return filepath.Join(home, ".storefront", "state.json"), nil
}
