package config

import (
	"os"
	"strconv"
	"strings"
	"sync"

	ecies "github.com/ecies/go/v2"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/kutluhann/xorroute/constants"
)

// Config is a simple in-memory for runtime configuration
// (private key, routing parameters from env, etc).
type Config struct {
	privateKey *ecies.PrivateKey

	KeySpace     int
	Kay          int
	LookupPolicy string
	DataDir      string
	LogLevel     string
}

var (
	config     *Config
	configOnce sync.Once
	configErr  error
)

// Init loads .env (if any) and the process environment exactly once.
func Init() (*Config, error) {
	configOnce.Do(func() {
		godotenv.Load()
		config, configErr = FromEnv(os.Getenv)
	})
	return config, configErr
}

func Default() *Config {
	return &Config{
		KeySpace:     constants.KeySpace,
		Kay:          constants.K,
		LookupPolicy: constants.LookupPolicy,
		DataDir:      constants.DataDir,
		LogLevel:     "info",
	}
}

// FromEnv builds a Config from getenv, falling back to defaults for unset
// keys. Every malformed value is reported, not just the first.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := Default()
	var err error

	if v := getenv("ROUTING_KEY_SPACE"); v != "" {
		n, perr := strconv.Atoi(v)
		err = multierr.Append(err, errors.Wrap(perr, "ROUTING_KEY_SPACE"))
		cfg.KeySpace = n
	}
	if v := getenv("ROUTING_KAY"); v != "" {
		n, perr := strconv.Atoi(v)
		err = multierr.Append(err, errors.Wrap(perr, "ROUTING_KAY"))
		cfg.Kay = n
	}
	if v := getenv("ROUTING_LOOKUP_POLICY"); v != "" {
		cfg.LookupPolicy = strings.ToLower(v)
	}
	if v := getenv("NODE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var err error
	if c.KeySpace <= 0 || c.KeySpace > constants.KeySpace {
		err = multierr.Append(err, errors.Errorf("key space %d outside 1..%d", c.KeySpace, constants.KeySpace))
	}
	if c.Kay <= 0 {
		err = multierr.Append(err, errors.Errorf("kay %d must be positive", c.Kay))
	}
	switch c.LookupPolicy {
	case "exact", "bucket":
	default:
		err = multierr.Append(err, errors.Errorf("unknown lookup policy %q", c.LookupPolicy))
	}
	if c.DataDir == "" {
		err = multierr.Append(err, errors.New("data dir is empty"))
	}
	return err
}

func (c *Config) SetPrivateKey(key *ecies.PrivateKey) {
	c.privateKey = key
}

func (c *Config) GetPrivateKey() *ecies.PrivateKey {
	return c.privateKey
}

func (c *Config) HasPrivateKey() bool {
	return c.privateKey != nil
}
