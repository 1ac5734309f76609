package commands

import (
	"context"
	"time"

	"github.com/ipmeta/ipmeta/config"
	"github.com/ipmeta/ipmeta/errors"
	"github.com/ipmeta/ipmeta/internal/httpclient"
	"github.com/ipmeta/ipmeta/internal/version"
	"github.com/ipmeta/ipmeta/lookup"
	"github.com/ipmeta/ipmeta/ribdb"
)

// ConfigFile is the --config flag value; empty means the default search path.
var ConfigFile string

func loadConfig() (*config.Config, error) {
	if ConfigFile != "" {
		return config.LoadFromFile(ConfigFile)
	}
	return config.Load()
}

// buildEngine loads the RIB database and constructs a ready lookup engine
// from the configuration.
func buildEngine(ctx context.Context) (*lookup.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	rib, err := ribdb.Load(cfg.RIB.DB)
	if err != nil {
		return nil, errors.Wrap(err, "loading RIB database")
	}
	return lookup.New(ctx, cfg, rib)
}

// fetchClient returns the HTTP client the fetch commands share.
func fetchClient(cfg config.FetchConfig) *httpclient.Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return httpclient.NewWithOptions(timeout, httpclient.Options{
		UserAgent: version.UserAgent(),
	})
}
