// Package headless hosts the Chromium instance used to render documents and
// to read the logged-in order history.
package headless

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/receiptexporter/receiptexporter/internal/pkg/log"
)

// Config describes how the browser is launched.
type Config struct {
	Bin         string
	UserDataDir string
	UserMode    bool
	Headful     bool
	Stealth     bool
	NoSandbox   bool
}

// Browser is a launched Chromium driven over the DevTools protocol.
type Browser struct {
	config   Config
	rod      *rod.Browser
	launcher *launcher.Launcher
	logger   *log.FieldedLogger
}

// Start launches Chromium and connects to it.
func Start(cfg Config) (*Browser, error) {
	var l *launcher.Launcher
	if cfg.UserMode {
		// In user mode, we reuse the user's own browser profile
		l = launcher.NewUserMode()
	} else {
		l = launcher.New()
	}

	l.Bin(cfg.Bin).
		Headless(!cfg.Headful).
		NoSandbox(cfg.NoSandbox)
	if cfg.UserDataDir != "" {
		l.UserDataDir(cfg.UserDataDir)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLaunch, err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %w", ErrLaunch, err)
	}

	browser := &Browser{
		config:   cfg,
		rod:      b,
		launcher: l,
		logger:   log.NewFieldedLogger(&log.Fields{"component": "headless"}),
	}
	browser.logger.Info("headless browser started", "control_url", controlURL, "user_mode", cfg.UserMode)

	return browser, nil
}

// Close shuts the browser down.
func (b *Browser) Close() {
	if err := b.rod.Close(); err != nil {
		b.logger.Warn("unable to close browser", "error", err)
	}
	b.logger.Info("headless browser closed")

	if b.config.UserMode {
		// In user mode, we DONT clean up the launcher to preserve user-data
		return
	}
	b.launcher.Cleanup()
}

// NewTab opens target in a new background tab without attaching to it.
func (b *Browser) NewTab(ctx context.Context, target string) (Tab, error) {
	res, err := proto.TargetCreateTarget{
		URL:              target,
		Background:       true,
		BrowserContextID: b.rod.BrowserContextID,
	}.Call(b.rod.Context(ctx))
	if err != nil {
		return nil, err
	}

	return &tab{browser: b.rod, targetID: res.TargetID}, nil
}

// LoadHTML navigates a fresh page to target and returns the rendered markup.
func (b *Browser) LoadHTML(ctx context.Context, target string) (string, error) {
	var (
		page *rod.Page
		err  error
	)
	if b.config.Stealth {
		page, err = stealth.Page(b.rod)
	} else {
		page, err = b.rod.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return "", err
	}
	defer page.Close()

	page = page.Context(ctx)
	if err := page.Navigate(target); err != nil {
		return "", err
	}
	if err := page.WaitLoad(); err != nil {
		return "", err
	}

	return page.HTML()
}

// Cookies returns the browser session cookies as HTTP cookies.
func (b *Browser) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	cookies, err := b.rod.Context(ctx).GetCookies()
	if err != nil {
		return nil, err
	}

	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}

	return out, nil
}

// SetCookies seeds the browser session with cookies for origin.
func (b *Browser) SetCookies(ctx context.Context, origin string, cookies []*http.Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:  c.Name,
			Value: c.Value,
			URL:   origin,
		})
	}

	return b.rod.Context(ctx).SetCookies(params)
}

// HTMLDataURL builds the data URL used to render raw HTML. A <base> element
// is injected after <head> so relative resources resolve against baseURL.
func HTMLDataURL(html, baseURL string) string {
	if baseURL != "" {
		base := fmt.Sprintf(`<base href="%s/">`, strings.TrimRight(baseURL, "/"))
		if i := strings.Index(strings.ToLower(html), "<head>"); i >= 0 {
			html = html[:i+len("<head>")] + base + html[i+len("<head>"):]
		} else {
			html = base + html
		}
	}

	return "data:text/html;charset=utf-8," + url.PathEscape(html)
}
