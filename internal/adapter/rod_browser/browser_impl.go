// Package rod_browser drives Chrome through go-rod. It is the alternative to
// the chromedp driver, selected with browser.driver: rod.
package rod_browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/user/titledate-verifier/internal/proxy"
	"github.com/user/titledate-verifier/internal/repository"
)

// Options configures the Chrome process.
type Options struct {
	Headless     bool
	ExecPath     string
	Profile      proxy.Profile
	WindowWidth  int
	WindowHeight int
}

type element struct {
	el *rod.Element
}

func (e *element) ID() string { return string(e.el.Object.ObjectID) }

// RodBrowser drives a single page of a rod-controlled Chrome. Calls are
// serialized.
type RodBrowser struct {
	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	logger   *zap.Logger
	closed   bool
}

// NewRodBrowser launches Chrome and opens the page every call runs in.
func NewRodBrowser(ctx context.Context, opts Options, logger *zap.Logger) (repository.BrowserRepository, error) {
	l := launcher.New().
		Headless(opts.Headless).
		Delete("enable-automation").
		Set("disable-blink-features", "AutomationControlled").
		Set("ignore-certificate-errors").
		Set("disable-features", "BlockInsecurePrivateNetworkRequests").
		Set("disable-dev-shm-usage").
		NoSandbox(true)
	if opts.ExecPath != "" {
		l = l.Bin(opts.ExecPath)
	} else if bin, ok := launcher.LookPath(); ok {
		l = l.Bin(bin)
	}
	if opts.Profile.Proxy != "" {
		l = l.Proxy(opts.Profile.Proxy)
	}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		l = l.Set("window-size", fmt.Sprintf("%d,%d", opts.WindowWidth, opts.WindowHeight))
	}

	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("open page: %w", err)
	}
	if opts.Profile.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.Profile.UserAgent}); err != nil {
			logger.Warn("User agent override failed", zap.Error(err))
		}
	}
	if _, err := page.EvalOnNewDocument(proxy.WebdriverPatch); err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("install webdriver patch: %w", err)
	}

	logger.Info("Rod session started",
		zap.Bool("headless", opts.Headless),
		zap.String("user_agent", opts.Profile.UserAgent),
		zap.Bool("proxy", opts.Profile.Proxy != ""),
	)
	return &RodBrowser{launcher: l, browser: browser, page: page, logger: logger}, nil
}

func (b *RodBrowser) Navigate(ctx context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	p := b.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("%w: %s: %w", repository.ErrNavigationFailed, url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("%w: %s: %w", repository.ErrNavigationFailed, url, err)
	}
	b.logger.Debug("Page loaded", zap.String("url", url), zap.Duration("took", time.Since(start)))
	return nil
}

// query finds elements; wait makes it retry until at least one appears.
func (b *RodBrowser) query(ctx context.Context, q repository.Query, wait bool) (rod.Elements, error) {
	p := b.page.Context(ctx)
	if !wait {
		p = p.Sleeper(rod.NotFoundSleeper)
	}
	switch q.By {
	case repository.ByCSS:
		if !wait {
			return p.Elements(q.Expr)
		}
		el, err := p.Element(q.Expr)
		return rod.Elements{el}, err
	case repository.ByID:
		sel := fmt.Sprintf("[id=%q]", q.Expr)
		if !wait {
			return p.Elements(sel)
		}
		el, err := p.Element(sel)
		return rod.Elements{el}, err
	default:
		if !wait {
			return p.ElementsX(q.Expr)
		}
		el, err := p.ElementX(q.Expr)
		return rod.Elements{el}, err
	}
}

func (b *RodBrowser) Find(ctx context.Context, q repository.Query) (repository.Element, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	els, err := b.query(ctx, q, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", repository.ErrElementNotFound, q.Expr, err)
	}
	el := els.First()
	if q.Clickable {
		if err := el.Context(ctx).WaitVisible(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", repository.ErrElementNotFound, q.Expr, err)
		}
	}
	return &element{el: el}, nil
}

func (b *RodBrowser) FindAll(ctx context.Context, q repository.Query) ([]repository.Element, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	els, err := b.query(ctx, q, false)
	if err != nil {
		var nf *rod.ElementNotFoundError
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]repository.Element, 0, len(els))
	for _, el := range els {
		if q.Clickable {
			if visible, err := el.Context(ctx).Visible(); err != nil || !visible {
				continue
			}
		}
		out = append(out, &element{el: el})
	}
	return out, nil
}

func unwrap(el repository.Element) (*rod.Element, error) {
	e, ok := el.(*element)
	if !ok {
		return nil, fmt.Errorf("%w: foreign element handle", repository.ErrStaleElement)
	}
	return e.el, nil
}

// eval runs fn with this bound to el.
func (b *RodBrowser) eval(ctx context.Context, el repository.Element, fn string, args ...any) (*proto.RuntimeRemoteObject, error) {
	e, err := unwrap(el)
	if err != nil {
		return nil, err
	}
	return e.Context(ctx).Eval(fn, args...)
}

func (b *RodBrowser) Click(ctx context.Context, el repository.Element) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.eval(ctx, el, `function() {
	this.scrollIntoView({block: 'center'});
	this.click();
}`)
	return err
}

func (b *RodBrowser) Text(ctx context.Context, el repository.Element) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, err := unwrap(el)
	if err != nil {
		return "", err
	}
	return e.Context(ctx).Text()
}

func (b *RodBrowser) Attribute(ctx context.Context, el repository.Element, name string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, err := unwrap(el)
	if err != nil {
		return "", false, err
	}
	v, err := e.Context(ctx).Attribute(name)
	if err != nil || v == nil {
		return "", false, err
	}
	return *v, true, nil
}

func (b *RodBrowser) SelectOption(ctx context.Context, el repository.Element, label string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	res, err := b.eval(ctx, el, `function(label) {
	for (const o of this.options || []) {
		if (o.text.trim() === label) {
			this.value = o.value;
			this.dispatchEvent(new Event('change', {bubbles: true}));
			return true;
		}
	}
	return false;
}`, label)
	if err != nil {
		return err
	}
	if !res.Value.Bool() {
		return fmt.Errorf("%w: %q", repository.ErrOptionNotFound, label)
	}
	return nil
}

func (b *RodBrowser) Type(ctx context.Context, el repository.Element, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, err := unwrap(el)
	if err != nil {
		return err
	}
	e = e.Context(ctx)
	if err := e.SelectAllText(); err != nil {
		return err
	}
	return e.Input(text)
}

func (b *RodBrowser) Submit(ctx context.Context, el repository.Element) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, err := unwrap(el)
	if err != nil {
		return err
	}
	return e.Context(ctx).Type(input.Enter)
}

func (b *RodBrowser) VisibleText(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	res, err := b.page.Context(ctx).Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (b *RodBrowser) HTML(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.page.Context(ctx).HTML()
}

// Wait does not hold the session lock.
func (b *RodBrowser) Wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Close shuts the browser and kills the process.
func (b *RodBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	err := b.browser.Close()
	b.launcher.Kill()
	b.launcher.Cleanup()
	b.logger.Info("Rod session closed")
	return err
}
