// Package browser owns the Chromium context that hosts the metrics viewer.
// It connects to (or launches) a browser over CDP, opens the viewer page,
// and exposes the tag filter input as a control the playback driver can
// write through, plus page screenshots for the capture pipeline.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// ErrElementNotFound is returned when a selector matches nothing on the page.
var ErrElementNotFound = errors.New("element not found")

// Config holds browser and page settings.
type Config struct {
	// DebuggerURL attaches to an already-running browser. When empty, a
	// browser is launched.
	DebuggerURL string `yaml:"debugger_url" json:"debugger_url"`

	// Launch is the browser binary followed by extra flags, used when
	// launching. Empty means the default managed browser.
	Launch []string `yaml:"launch" json:"launch"`

	Headless            bool `yaml:"headless" json:"headless"`
	ViewportWidth       int  `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight      int  `yaml:"viewport_height" json:"viewport_height"`
	NavigationTimeoutMs int  `yaml:"navigation_timeout_ms" json:"navigation_timeout_ms"`
	ElementTimeoutMs    int  `yaml:"element_timeout_ms" json:"element_timeout_ms"`
}

// DefaultConfig returns sensible defaults. The viewport matches the
// recording resolution the capture pipeline archives at.
func DefaultConfig() Config {
	return Config{
		Headless:            false,
		ViewportWidth:       1920,
		ViewportHeight:      1080,
		NavigationTimeoutMs: 30000,
		ElementTimeoutMs:    10000,
	}
}

// NavigationTimeout returns the page navigation timeout.
func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// ElementTimeout returns how long element lookup waits for the page.
func (c Config) ElementTimeout() time.Duration {
	if c.ElementTimeoutMs == 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ElementTimeoutMs) * time.Millisecond
}

// Session is one connected browser with one viewer page.
type Session struct {
	cfg     Config
	logger  *zap.Logger
	browser *rod.Browser
	page    *rod.Page
}

// Connect attaches to the configured debugger URL or launches a browser.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	controlURL := cfg.DebuggerURL
	if controlURL == "" {
		url, err := launchBrowser(cfg)
		if err != nil {
			return nil, err
		}
		controlURL = url
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	logger.Debug("browser connected", zap.String("control_url", controlURL))
	return &Session{cfg: cfg, logger: logger, browser: b}, nil
}

// launchBrowser starts a browser binary and returns its control URL.
func launchBrowser(cfg Config) (string, error) {
	if len(cfg.Launch) == 0 {
		url, err := launcher.New().Headless(cfg.Headless).Launch()
		if err != nil {
			return "", fmt.Errorf("launch browser: %w", err)
		}
		return url, nil
	}

	bin := cfg.Launch[0]
	launch := launcher.New().Bin(bin).Headless(cfg.Headless)
	for _, rawFlag := range cfg.Launch[1:] {
		flagStr := strings.TrimLeft(rawFlag, "-")
		name, val, hasVal := strings.Cut(flagStr, "=")
		if hasVal {
			launch = launch.Set(flags.Flag(name), val)
		} else {
			launch = launch.Set(flags.Flag(name))
		}
	}
	url, err := launch.Launch()
	if err != nil {
		return "", fmt.Errorf("launch %s: %w", bin, err)
	}
	return url, nil
}

// Open creates the viewer page, applies the viewport, and navigates.
func (s *Session) Open(ctx context.Context, url string) error {
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.ViewportWidth,
		Height:            s.cfg.ViewportHeight,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		s.logger.Warn("failed to set viewport", zap.Error(err))
	}

	if err := page.Context(ctx).Timeout(s.cfg.NavigationTimeout()).Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}

	s.page = page
	s.logger.Info("viewer page opened", zap.String("url", url))
	return nil
}

// FilterControl locates the viewer's tag filter input by selector. The
// lookup waits up to the element timeout for the page to render it; a miss
// wraps ErrElementNotFound so callers can refuse to start playback.
func (s *Session) FilterControl(ctx context.Context, selector string) (*FilterControl, error) {
	if s.page == nil {
		return nil, errors.New("no page open")
	}
	if _, err := s.page.Context(ctx).Timeout(s.cfg.ElementTimeout()).Element(selector); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	s.logger.Debug("filter control located", zap.String("selector", selector))
	return &FilterControl{page: s.page, selector: selector}, nil
}

// Screenshot captures the current page as PNG.
func (s *Session) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if s.page == nil {
		return nil, errors.New("no page open")
	}
	return s.page.Context(ctx).Screenshot(fullPage, nil)
}

// Close shuts the page and the browser connection down.
func (s *Session) Close() error {
	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	if s.browser != nil {
		err := s.browser.Close()
		s.browser = nil
		return err
	}
	return nil
}

// FilterControl writes values into the viewer's filter input the way a live
// interactive edit would.
type FilterControl struct {
	page     *rod.Page
	selector string
}

// SetFilter sets the input's value, then dispatches a bubbling "input"
// event (value changed) followed by a bubbling "change" event (value
// committed). Both bubble through the host UI's event layer exactly like a
// keystroke-driven edit, which is what makes the viewer's reactive
// subscribers re-filter and re-render the matching tag set.
func (c *FilterControl) SetFilter(ctx context.Context, value string) error {
	_, err := c.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS: `
		(selector, value) => {
			const el = document.querySelector(selector);
			if (!el) throw new Error('filter control missing: ' + selector);
			el.value = value;
			el.dispatchEvent(new Event('input', { bubbles: true }));
			el.dispatchEvent(new Event('change', { bubbles: true }));
		}
		`,
		JSArgs:       []interface{}{c.selector, value},
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return fmt.Errorf("dispatch filter edit %q: %w", value, err)
	}
	return nil
}
