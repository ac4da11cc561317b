// Package session gives each scenario its own browser and guarantees it is shut
// down afterwards.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnjkle/traderev/internal/browser"
	"github.com/johnjkle/traderev/internal/config"
)

// ErrSessionStart wraps any failure to bring up a browser session.
var ErrSessionStart = errors.New("session start failed")

const releaseTimeout = 15 * time.Second

// Session is one browser owned by one scenario.
type Session struct {
	id       string
	driver   browser.Driver
	viewport config.ViewportConfig
	logger   *zap.Logger

	once       sync.Once
	releaseErr error

	mu         sync.Mutex
	screenshot string
}

func (s *Session) ID() string                      { return s.id }
func (s *Session) Driver() browser.Driver          { return s.driver }
func (s *Session) Viewport() config.ViewportConfig { return s.viewport }

// Screenshot returns the path of the failure screenshot, if one was taken.
func (s *Session) Screenshot() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screenshot
}

// Release quits the browser. Only the first call does any work; later calls
// return the first call's result.
func (s *Session) Release(ctx context.Context) error {
	s.once.Do(func() {
		start := time.Now()
		if err := s.driver.Quit(ctx); err != nil {
			s.releaseErr = fmt.Errorf("releasing session %s: %w", s.id, err)
			s.logger.Warn("Browser did not shut down cleanly.", zap.Error(err))
			return
		}
		s.logger.Debug("Session released.", zap.Duration("took", time.Since(start)))
	})
	return s.releaseErr
}

// SaveScreenshot captures the current window to dir/<session id>.png.
func (s *Session) SaveScreenshot(ctx context.Context, dir string) (string, error) {
	buf, err := s.driver.Screenshot(ctx)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifacts dir: %w", err)
	}
	path := filepath.Join(dir, s.id+".png")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", fmt.Errorf("writing screenshot: %w", err)
	}
	s.mu.Lock()
	s.screenshot = path
	s.mu.Unlock()
	return path, nil
}

// Manager starts sessions with a fixed browser configuration.
type Manager struct {
	factory browser.Factory
	browser config.BrowserConfig
	report  config.ReportConfig
	logger  *zap.Logger
}

// NewManager builds a manager that starts browsers with factory.
func NewManager(cfg config.Interface, factory browser.Factory, logger *zap.Logger) *Manager {
	return &Manager{
		factory: factory,
		browser: cfg.Browser(),
		report:  cfg.Report(),
		logger:  logger.Named("session"),
	}
}

// Acquire starts a browser and resizes it to the configured viewport. On any
// failure the browser, if it started, is quit before returning.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	log := m.logger.With(zap.String("session_id", id))

	drv, err := m.factory(ctx, m.browser, log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionStart, err)
	}

	vp := m.browser.Viewport
	if err := drv.SetWindowSize(ctx, vp.Width, vp.Height); err != nil {
		quitCtx, cancel := detached(ctx)
		defer cancel()
		if qerr := drv.Quit(quitCtx); qerr != nil {
			log.Warn("Failed to quit browser after setup error.", zap.Error(qerr))
		}
		return nil, fmt.Errorf("%w: setting window size: %w", ErrSessionStart, err)
	}

	log.Info("Session acquired.", zap.String("driver", drv.Name()), zap.Int("width", vp.Width), zap.Int("height", vp.Height))
	return &Session{id: id, driver: drv, viewport: vp, logger: log}, nil
}

// Run acquires a session, calls fn with it and always releases it, including
// when fn panics. A failing fn gets a screenshot in the artifacts dir when
// enabled. The release error is returned only if fn succeeded.
func (m *Manager) Run(ctx context.Context, fn func(context.Context, *Session) error) (err error) {
	s, err := m.Acquire(ctx)
	if err != nil {
		return err
	}

	defer func() {
		r := recover()
		if r != nil || err != nil {
			m.capture(ctx, s)
		}
		relCtx, cancel := detached(ctx)
		relErr := s.Release(relCtx)
		cancel()
		if r != nil {
			panic(r)
		}
		if err == nil {
			err = relErr
		}
	}()

	return fn(ctx, s)
}

func (m *Manager) capture(ctx context.Context, s *Session) {
	if !m.report.ScreenshotOnFailure || m.report.ArtifactsDir == "" {
		return
	}
	shotCtx, cancel := detached(ctx)
	defer cancel()
	path, err := s.SaveScreenshot(shotCtx, m.report.ArtifactsDir)
	if err != nil {
		s.logger.Warn("Could not capture failure screenshot.", zap.Error(err))
		return
	}
	s.logger.Info("Saved failure screenshot.", zap.String("path", path))
}

// detached keeps cleanup running after the caller's context is canceled.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
}
