package chromedp_browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
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
	node *cdp.Node
}

func (e *element) ID() string { return strconv.FormatInt(int64(e.node.BackendNodeID), 10) }

// ChromedpBrowser drives a single Chrome tab. Calls are serialized.
type ChromedpBrowser struct {
	mu          sync.Mutex
	tab         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	closeOnce   sync.Once
	logger      *zap.Logger
}

// NewChromedpBrowser launches Chrome and opens the tab every call runs in.
// The browser lives until Close or until parent is cancelled.
func NewChromedpBrowser(parent context.Context, opts Options, logger *zap.Logger) (repository.BrowserRepository, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("disable-features", "BlockInsecurePrivateNetworkRequests"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if opts.Profile.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.Profile.UserAgent))
	}
	if opts.Profile.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Profile.Proxy))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	sugar := logger.Sugar()
	tab, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	// The first Run starts the browser.
	err := chromedp.Run(tab, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(proxy.WebdriverPatch).Do(ctx)
		return err
	}))
	if err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	logger.Info("Chrome session started",
		zap.Bool("headless", opts.Headless),
		zap.String("user_agent", opts.Profile.UserAgent),
		zap.Bool("proxy", opts.Profile.Proxy != ""),
	)
	return &ChromedpBrowser{tab: tab, cancel: cancel, allocCancel: allocCancel, logger: logger}, nil
}

// run executes actions in the tab, bounded by the caller's ctx.
func (b *ChromedpBrowser) run(ctx context.Context, actions ...chromedp.Action) error {
	tctx, cancel := context.WithCancel(b.tab)
	defer cancel()
	if dl, ok := ctx.Deadline(); ok {
		var dcancel context.CancelFunc
		tctx, dcancel = context.WithDeadline(tctx, dl)
		defer dcancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(tctx, actions...)
}

func (b *ChromedpBrowser) Navigate(ctx context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	if err := b.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("%w: %s: %w", repository.ErrNavigationFailed, url, err)
	}
	b.logger.Debug("Page loaded", zap.String("url", url), zap.Duration("took", time.Since(start)))
	return nil
}

// cssSelector translates a CSS or id query into a selector. Ids go through
// an attribute selector so they need no escaping. XPath queries report false.
func cssSelector(q repository.Query) (string, bool) {
	switch q.By {
	case repository.ByCSS:
		return q.Expr, true
	case repository.ByID:
		return fmt.Sprintf("[id=%q]", q.Expr), true
	}
	return "", false
}

// pollInterval spaces the lookups of Find while it waits for a match.
const pollInterval = 100 * time.Millisecond

// Find waits until the query matches. A clickable query only needs its first
// visible match; hidden matches are skipped, not waited on.
func (b *ChromedpBrowser) Find(ctx context.Context, q repository.Query) (repository.Element, error) {
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	var lastErr error
	for {
		els, err := b.FindAll(ctx, q)
		if err == nil && len(els) > 0 {
			return els[0], nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			if lastErr == nil {
				lastErr = ctx.Err()
			}
			return nil, fmt.Errorf("%w: %s: %w", repository.ErrElementNotFound, q.Expr, lastErr)
		case <-t.C:
		}
	}
}

// FindAll returns the current matches without waiting for any.
func (b *ChromedpBrowser) FindAll(ctx context.Context, q repository.Query) ([]repository.Element, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var nodes []*cdp.Node
	var err error
	if sel, ok := cssSelector(q); ok {
		err = b.run(ctx, chromedp.Nodes(sel, &nodes, chromedp.ByQuery, chromedp.AtLeast(0)))
	} else {
		nodes, err = b.xpath(ctx, q.Expr)
	}
	if err != nil {
		return nil, err
	}
	out := make([]repository.Element, 0, len(nodes))
	for _, n := range nodes {
		el := &element{node: n}
		if q.Clickable {
			var visible bool
			if err := b.call(ctx, el, jsVisible, &visible); err != nil || !visible {
				continue
			}
		}
		out = append(out, el)
	}
	return out, nil
}

// xpath evaluates expr with document.evaluate. DOM.performSearch would also
// match plain text and attribute values. The caller holds b.mu.
func (b *ChromedpBrowser) xpath(ctx context.Context, expr string) ([]*cdp.Node, error) {
	lit, err := json.Marshal(expr)
	if err != nil {
		return nil, err
	}
	var nodes []*cdp.Node
	err = b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var arr *runtime.RemoteObject
		if err := chromedp.Evaluate(fmt.Sprintf("(%s)(%s)", jsXPath, lit), &arr).Do(ctx); err != nil {
			return fmt.Errorf("xpath %s: %w", expr, err)
		}
		defer func() { _ = runtime.ReleaseObject(arr.ObjectID).Do(ctx) }()

		var n int
		if err := chromedp.CallFunctionOn(`function() { return this.length; }`, &n, onObject(arr.ObjectID)).Do(ctx); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			var item *runtime.RemoteObject
			if err := chromedp.CallFunctionOn(`function(i) { return this[i]; }`, &item, onObject(arr.ObjectID), i).Do(ctx); err != nil {
				return err
			}
			node, err := dom.DescribeNode().WithObjectID(item.ObjectID).Do(ctx)
			_ = runtime.ReleaseObject(item.ObjectID).Do(ctx)
			if err != nil {
				return err
			}
			nodes = append(nodes, node)
		}
		return nil
	}))
	return nodes, err
}

func onObject(id runtime.RemoteObjectID) chromedp.CallOption {
	return func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
		return p.WithObjectID(id)
	}
}

const (
	jsXPath = `function(expr) {
	const snap = document.evaluate(expr, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	const out = [];
	for (let i = 0; i < snap.snapshotLength; i++) {
		const n = snap.snapshotItem(i);
		if (n.nodeType === Node.ELEMENT_NODE) out.push(n);
	}
	return out;
}`
	jsVisible = `function() {
	const r = this.getBoundingClientRect();
	return !!(this.offsetParent || r.width || r.height);
}`
	jsClick = `function() {
	this.scrollIntoView({block: 'center'});
	this.click();
}`
	jsText = `function() { return this.innerText || this.textContent || ''; }`
	jsAttr = `function(name) {
	return {set: this.hasAttribute(name), value: this.getAttribute(name) || ''};
}`
	jsSelect = `function(label) {
	for (const o of this.options || []) {
		if (o.text.trim() === label) {
			this.value = o.value;
			this.dispatchEvent(new Event('change', {bubbles: true}));
			return true;
		}
	}
	return false;
}`
	jsFocusClear = `function() { this.focus(); this.value = ''; }`
	jsFocus      = `function() { this.focus(); }`
)

// call invokes fn with this bound to el and decodes the result into res.
// The caller holds b.mu.
func (b *ChromedpBrowser) call(ctx context.Context, el repository.Element, fn string, res any, args ...any) error {
	e, ok := el.(*element)
	if !ok {
		return fmt.Errorf("%w: foreign element handle", repository.ErrStaleElement)
	}
	return b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(e.node.BackendNodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", repository.ErrStaleElement, err)
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()
		return chromedp.CallFunctionOn(fn, res, func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return p.WithObjectID(obj.ObjectID)
		}, args...).Do(ctx)
	}))
}

func (b *ChromedpBrowser) Click(ctx context.Context, el repository.Element) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.call(ctx, el, jsClick, nil)
}

func (b *ChromedpBrowser) Text(ctx context.Context, el repository.Element) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var s string
	err := b.call(ctx, el, jsText, &s)
	return s, err
}

func (b *ChromedpBrowser) Attribute(ctx context.Context, el repository.Element, name string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var attr struct {
		Set   bool   `json:"set"`
		Value string `json:"value"`
	}
	if err := b.call(ctx, el, jsAttr, &attr, name); err != nil {
		return "", false, err
	}
	return attr.Value, attr.Set, nil
}

func (b *ChromedpBrowser) SelectOption(ctx context.Context, el repository.Element, label string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var found bool
	if err := b.call(ctx, el, jsSelect, &found, label); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %q", repository.ErrOptionNotFound, label)
	}
	return nil
}

func (b *ChromedpBrowser) Type(ctx context.Context, el repository.Element, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.call(ctx, el, jsFocusClear, nil); err != nil {
		return err
	}
	return b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.InsertText(text).Do(ctx)
	}))
}

func (b *ChromedpBrowser) Submit(ctx context.Context, el repository.Element) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.call(ctx, el, jsFocus, nil); err != nil {
		return err
	}
	return b.run(ctx, chromedp.KeyEvent(kb.Enter))
}

func (b *ChromedpBrowser) VisibleText(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var s string
	err := b.run(ctx, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &s))
	return s, err
}

func (b *ChromedpBrowser) HTML(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var s string
	err := b.run(ctx, chromedp.OuterHTML("html", &s, chromedp.ByQuery))
	return s, err
}

// Wait does not hold the session lock.
func (b *ChromedpBrowser) Wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Close shuts the tab and the Chrome process.
func (b *ChromedpBrowser) Close() error {
	b.closeOnce.Do(func() {
		b.cancel()
		b.allocCancel()
		b.logger.Info("Chrome session closed")
	})
	return nil
}
