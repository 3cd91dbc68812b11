// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/geoprobe-cli/internal/config"
)

const releaseGracePeriod = 10 * time.Second

// Manager owns the browser process lifecycle for one test run: the exec
// allocator (driver), the browser context, and the single session tab.
// It guarantees release of all three on every exit path.
type Manager struct {
	cfg    *config.Config
	logger *zap.Logger

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	session *Session

	mu          sync.Mutex
	acquired    bool
	releaseOnce sync.Once
}

// NewManager creates a browser manager. The browser process is not launched
// until Acquire is called.
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: logger.Named("browser_manager"),
	}
}

// Acquire launches the headless browser with the fixed containment-friendly
// configuration and opens one isolated session tab. At most one session per
// manager; a second call is an error.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.acquired {
		return nil, fmt.Errorf("session already acquired; one session per run")
	}

	opts := m.allocatorOptions()
	m.allocCtx, m.allocCancel = chromedp.NewExecAllocator(ctx, opts...)

	// First context from the allocator starts the browser process.
	m.browserCtx, m.browserCancel = chromedp.NewContext(m.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			m.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	if err := chromedp.Run(m.browserCtx); err != nil {
		m.releaseLocked()
		return nil, fmt.Errorf("failed to launch browser process: %w", err)
	}

	// The session gets its own tab so teardown order is tab, browser,
	// allocator.
	tabCtx, tabCancel := chromedp.NewContext(m.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		m.releaseLocked()
		return nil, fmt.Errorf("failed to open session tab: %w", err)
	}

	session := newSession(uuid.New().String(), tabCtx, tabCancel, m.cfg, m.logger)
	m.session = session
	m.acquired = true

	m.logger.Info("Browser session acquired.",
		zap.String("session_id", session.ID()),
		zap.Bool("headless", m.cfg.Browser.Headless),
		zap.Int("viewport_width", m.cfg.Browser.ViewportWidth),
		zap.Int("viewport_height", m.cfg.Browser.ViewportHeight))
	return session, nil
}

// Release tears down the session tab, the browser process, and the driver
// subsystem, in that order. Idempotent. Each step is attempted even if a
// prior step fails; failures are logged, never returned, since teardown must
// not mask the original test outcome. All pages are invalid afterwards.
func (m *Manager) Release(ctx context.Context) {
	m.releaseOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.releaseLocked()
	})
}

func (m *Manager) releaseLocked() {
	if m.session != nil {
		if err := m.session.close(releaseGracePeriod); err != nil {
			m.logger.Warn("Error closing session tab (ignored).", zap.Error(err))
		}
		m.session = nil
	}

	if m.browserCancel != nil {
		if err := gracefulCancel(m.browserCtx, m.browserCancel); err != nil {
			m.logger.Warn("Error closing browser process (ignored).", zap.Error(err))
		}
		m.browserCancel = nil
	}

	if m.allocCancel != nil {
		m.allocCancel()
		m.allocCancel = nil
	}

	m.logger.Info("Browser session released.")
}

// gracefulCancel asks chromedp for a graceful shutdown before cancelling
// the context outright.
func gracefulCancel(ctx context.Context, cancel context.CancelFunc) error {
	defer cancel()
	if ctx == nil {
		return nil
	}
	return chromedp.Cancel(ctx)
}

// allocatorOptions mirrors the fixed launch configuration: headless, fixed
// viewport, and the process flags needed for containerized runs.
func (m *Manager) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", m.cfg.Browser.Headless),
		chromedp.WindowSize(m.cfg.Browser.ViewportWidth, m.cfg.Browser.ViewportHeight),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("ipc", "host"),
		chromedp.Flag("single-process", true),
	)

	for _, arg := range m.cfg.Browser.Args {
		name, value, hasValue := parseFlag(arg)
		if name == "" {
			continue
		}
		if hasValue {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}
	return opts
}

// parseFlag splits "--name=value" or "--name" into its parts.
func parseFlag(arg string) (name, value string, hasValue bool) {
	arg = strings.TrimLeft(arg, "-")
	name, value, hasValue = strings.Cut(arg, "=")
	return name, value, hasValue
}
