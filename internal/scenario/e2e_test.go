package scenario_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/johnjkle/traderev/internal/browser/backend"
	"github.com/johnjkle/traderev/internal/config"
	"github.com/johnjkle/traderev/internal/scenario"
	"github.com/johnjkle/traderev/internal/session"
	"github.com/johnjkle/traderev/internal/session/sessiontest"
)

// liveEnv builds an environment against the real sites. The live tests only run
// with TRADEREV_E2E=1; TRADEREV_* variables override the config as in the CLI.
func liveEnv(t *testing.T) scenario.Env {
	t.Helper()
	if os.Getenv("TRADEREV_E2E") != "1" {
		t.Skip("live site tests are disabled; set TRADEREV_E2E=1")
	}
	v := viper.New()
	config.SetDefaults(v)
	v.SetEnvPrefix("TRADEREV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	cfg, err := config.NewConfigFromViper(v)
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	mgr := session.NewManager(cfg, backend.New, logger)
	return scenario.Env{
		Session:  sessiontest.New(t, mgr),
		Sites:    cfg.Sites(),
		Timeouts: cfg.Timeouts(),
		Filter:   cfg.Filter(),
		Logger:   logger,
	}
}

func runLive(t *testing.T, name string) {
	env := liveEnv(t)
	sc, ok := scenario.Lookup(name)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	res, err := sc.Run(ctx, env)
	require.NoError(t, err)
	if res.Message != "" {
		t.Log(res.Message)
	}
}

func TestCareersPageDisplayedProperly(t *testing.T) {
	runLive(t, scenario.CareersPageDisplayedProperly)
}

func TestLocationFilter(t *testing.T) {
	runLive(t, scenario.LocationFilter)
}

func TestLocationAndTeamFilters(t *testing.T) {
	runLive(t, scenario.LocationAndTeamFilters)
}
