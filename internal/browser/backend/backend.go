// Package backend picks the browser driver implementation named in the config.
package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/johnjkle/traderev/internal/browser"
	"github.com/johnjkle/traderev/internal/browser/cdpdriver"
	"github.com/johnjkle/traderev/internal/browser/pwdriver"
	"github.com/johnjkle/traderev/internal/browser/wddriver"
	"github.com/johnjkle/traderev/internal/config"
)

var factories = map[string]browser.Factory{
	config.BackendChromedp:   cdpdriver.New,
	config.BackendPlaywright: pwdriver.New,
	config.BackendWebDriver:  wddriver.New,
}

// New starts a browser with the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (browser.Driver, error) {
	factory, ok := factories[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown browser backend %q", cfg.Backend)
	}
	logger.Debug("Starting browser.",
		zap.String("backend", cfg.Backend),
		zap.String("browser", cfg.Name),
		zap.Bool("headless", cfg.Headless),
	)
	return factory(ctx, cfg, logger)
}

// Names lists the registered backends.
func Names() []string {
	return []string{config.BackendChromedp, config.BackendPlaywright, config.BackendWebDriver}
}
