package browser

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"certifyhub-backend/lib/proxypool"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

var ErrNoElement = fmt.Errorf("no element matched the selector")

// Session is the narrow surface the scraping pipeline needs from a
// rendered page. Everything else about the underlying browser stays
// behind this interface so the pipeline can run against canned
// documents in tests.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Reload() error
	URL() string
	Title() string
	HTML() (string, error)
	Has(selector string) bool
	Text(selector string) (string, error)
	Attribute(selector, name string) (string, error)
	Click(selector string) error
	ClickAll(selector string) int
	Input(selector, text string) error
	EvalInt(js string) (int, error)
	EvalString(js string) (string, error)
	Run(js string) error
	MoveMouse(x, y float64) error
	ScrollTo(y int) error
	PressEscape() error
	ClearCookies() error
	Close()
}

// Source hands out fresh isolated sessions, one browser per session.
type Source interface {
	NewSession(ctx context.Context) (Session, error)
}

type Options struct {
	Headless bool
	// probability in [0, 1] of attaching a free proxy to a new session
	ProxyChance float64
	Proxies     *proxypool.Pool
	NavTimeout  time.Duration
}

type Factory struct {
	opts Options
}

func NewFactory(opts Options) Factory {
	if opts.NavTimeout == 0 {
		opts.NavTimeout = time.Second * 60
	}
	return Factory{opts: opts}
}

func (f Factory) NewSession(ctx context.Context) (Session, error) {
	identity := randomIdentity()
	slog.Debug("new browser session", "user_agent", identity.UserAgent)

	l := launcher.New().
		Headless(f.opts.Headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-infobars").
		Set("disable-dev-shm-usage").
		Set("no-first-run").
		Set("no-default-browser-check")

	if f.opts.Proxies != nil && rand.Float64() < f.opts.ProxyChance {
		if proxy, ok := f.opts.Proxies.Pick(ctx); ok {
			slog.Info("attaching proxy to session", "proxy", proxy.Addr())
			l = l.Proxy(proxy.Addr())
		}
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := stealth.Page(b)
	if err != nil {
		b.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to open stealth page: %w", err)
	}

	s := &rodSession{
		launcher:   l,
		browser:    b,
		page:       page,
		navTimeout: f.opts.NavTimeout,
	}
	if err := s.applyIdentity(identity); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

type rodSession struct {
	launcher   *launcher.Launcher
	browser    *rod.Browser
	page       *rod.Page
	navTimeout time.Duration
}

func (s *rodSession) applyIdentity(id Identity) error {
	err := s.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      id.UserAgent,
		AcceptLanguage: "en-US,en;q=0.9",
	})
	if err != nil {
		return err
	}
	err = s.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             id.ViewportWidth,
		Height:            id.ViewportHeight,
		DeviceScaleFactor: id.DeviceScale,
		Mobile:            false,
	})
	if err != nil {
		return err
	}
	err = proto.EmulationSetTimezoneOverride{TimezoneID: id.Timezone}.Call(s.page)
	if err != nil {
		return err
	}
	err = proto.EmulationSetTouchEmulationEnabled{Enabled: id.HasTouch}.Call(s.page)
	if err != nil {
		return err
	}
	accuracy := float64(100)
	err = proto.EmulationSetGeolocationOverride{
		Latitude:  &id.Latitude,
		Longitude: &id.Longitude,
		Accuracy:  &accuracy,
	}.Call(s.page)
	if err != nil {
		return err
	}

	// go-rod/stealth covers the webdriver flag, these cover the rest
	// of the fingerprint reads the target is known to make.
	return s.Run(fingerprintPatches)
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, s.navTimeout)
	defer cancel()

	page := s.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	if err := page.WaitLoad(); err != nil {
		slog.Debug("wait load failed, continuing with partial document", "err", err)
	}
	return nil
}

func (s *rodSession) Reload() error {
	if err := s.page.Reload(); err != nil {
		return err
	}
	return s.page.WaitLoad()
}

func (s *rodSession) URL() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (s *rodSession) Title() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.Title
}

func (s *rodSession) HTML() (string, error) {
	return s.page.HTML()
}

func (s *rodSession) Has(selector string) bool {
	has, _, err := s.page.Has(selector)
	return err == nil && has
}

func (s *rodSession) Text(selector string) (string, error) {
	has, el, err := s.page.Has(selector)
	if err != nil {
		return "", err
	}
	if !has {
		return "", ErrNoElement
	}
	return el.Text()
}

func (s *rodSession) Attribute(selector, name string) (string, error) {
	has, el, err := s.page.Has(selector)
	if err != nil {
		return "", err
	}
	if !has {
		return "", ErrNoElement
	}
	value, err := el.Attribute(name)
	if err != nil {
		return "", err
	}
	if value == nil {
		return "", nil
	}
	return *value, nil
}

func (s *rodSession) Click(selector string) error {
	has, el, err := s.page.Has(selector)
	if err != nil {
		return err
	}
	if !has {
		return ErrNoElement
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// ClickAll clicks every element matching the selector, returning the
// number of successful clicks. Individual click failures are skipped.
func (s *rodSession) ClickAll(selector string) int {
	elements, err := s.page.Elements(selector)
	if err != nil {
		return 0
	}
	clicked := 0
	for _, el := range elements {
		if err := el.Click(proto.InputMouseButtonLeft, 1); err == nil {
			clicked++
		}
	}
	return clicked
}

func (s *rodSession) Input(selector, text string) error {
	has, el, err := s.page.Has(selector)
	if err != nil {
		return err
	}
	if !has {
		return ErrNoElement
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	return el.Input(text)
}

func (s *rodSession) EvalInt(js string) (int, error) {
	obj, err := s.page.Eval(js)
	if err != nil {
		return 0, err
	}
	return obj.Value.Int(), nil
}

func (s *rodSession) EvalString(js string) (string, error) {
	obj, err := s.page.Eval(js)
	if err != nil {
		return "", err
	}
	return obj.Value.Str(), nil
}

func (s *rodSession) Run(js string) error {
	_, err := s.page.Eval(js)
	return err
}

func (s *rodSession) MoveMouse(x, y float64) error {
	return s.page.Mouse.MoveLinear(proto.NewPoint(x, y), 8)
}

func (s *rodSession) ScrollTo(y int) error {
	_, err := s.page.Eval(`(y) => window.scrollTo(0, y)`, y)
	return err
}

func (s *rodSession) PressEscape() error {
	return s.page.Keyboard.Press(input.Escape)
}

func (s *rodSession) ClearCookies() error {
	return proto.NetworkClearBrowserCookies{}.Call(s.page)
}

func (s *rodSession) Close() {
	if err := s.browser.Close(); err != nil {
		slog.Debug("failed to close browser", "err", err)
	}
	s.launcher.Kill()
}
