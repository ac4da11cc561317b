// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/johnjkle/traderev/internal/browser"
	"github.com/johnjkle/traderev/internal/config"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

var _ config.Interface = (*MockConfig)(nil)

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Browser() config.BrowserConfig {
	args := m.Called()
	return args.Get(0).(config.BrowserConfig)
}

func (m *MockConfig) Timeouts() config.TimeoutConfig {
	args := m.Called()
	return args.Get(0).(config.TimeoutConfig)
}

func (m *MockConfig) Sites() config.SitesConfig {
	args := m.Called()
	return args.Get(0).(config.SitesConfig)
}

func (m *MockConfig) Filter() config.FilterConfig {
	args := m.Called()
	return args.Get(0).(config.FilterConfig)
}

func (m *MockConfig) Report() config.ReportConfig {
	args := m.Called()
	return args.Get(0).(config.ReportConfig)
}

// --- Setters ---

func (m *MockConfig) SetBrowserBackend(b string) { m.Called(b) }
func (m *MockConfig) SetBrowserName(n string)    { m.Called(n) }
func (m *MockConfig) SetBrowserHeadless(b bool)  { m.Called(b) }
func (m *MockConfig) SetReportFormat(f string)   { m.Called(f) }
func (m *MockConfig) SetReportOutput(o string)   { m.Called(o) }

// -- Browser Mocks --

// MockDriver implements browser.Driver for testing.
type MockDriver struct {
	mock.Mock
}

var _ browser.Driver = (*MockDriver)(nil)

func (m *MockDriver) Name() string { return m.Called().String(0) }

func (m *MockDriver) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockDriver) FindElement(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	args := m.Called(ctx, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(browser.Element), args.Error(1)
}

func (m *MockDriver) FindElements(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	args := m.Called(ctx, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]browser.Element), args.Error(1)
}

func (m *MockDriver) WindowHandles(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDriver) SwitchToWindow(ctx context.Context, handle string) error {
	return m.Called(ctx, handle).Error(0)
}

func (m *MockDriver) WaitForDocument(ctx context.Context, sentinel browser.Locator, timeout time.Duration) error {
	return m.Called(ctx, sentinel, timeout).Error(0)
}

func (m *MockDriver) SetWindowSize(ctx context.Context, width, height int) error {
	return m.Called(ctx, width, height).Error(0)
}

func (m *MockDriver) Screenshot(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockDriver) Quit(ctx context.Context) error { return m.Called(ctx).Error(0) }

// MockElement implements browser.Element for testing.
type MockElement struct {
	mock.Mock
}

var _ browser.Element = (*MockElement)(nil)

func (m *MockElement) Click(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *MockElement) Text(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockElement) IsDisplayed(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockElement) FindElement(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	args := m.Called(ctx, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(browser.Element), args.Error(1)
}

func (m *MockElement) FindElements(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	args := m.Called(ctx, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]browser.Element), args.Error(1)
}

// -- Factory Mock --

// MockFactory records browser starts. Its Start method satisfies browser.Factory.
type MockFactory struct {
	mock.Mock
}

func (m *MockFactory) Start(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (browser.Driver, error) {
	args := m.Called(ctx, cfg, logger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(browser.Driver), args.Error(1)
}
