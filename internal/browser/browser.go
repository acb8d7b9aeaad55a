/*
PURPOSE:
  Launches and drives the browser under test over the Chrome DevTools
  Protocol. Implements the navigation control the page cycler needs.

REQUIREMENTS:
  User-specified:
  - Navigate, clear cache, inject a script on commit, evaluate expressions,
    wait for an expression with a timeout.

  Implementation-discovered:
  - gc() must be exposed to pages (--js-flags=--expose-gc) so the load
    payload can collect garbage between pages.
  - Process samplers need the browser PID.
  - Scripts added on new document persist for the tab's life; re-adding the
    same payload every navigation would run it N times.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (Run)
  - Implements: engine.Tab, metrics.Tab
  - Dependencies: github.com/go-rod/rod

ERROR HANDLING:
  - Every CDP failure is wrapped and returned; the cycler decides whether it
    fails a navigation.

USAGE:
  b, err := browser.Launch(ctx, browser.Options{Headless: true})
  defer b.Close()
  tab, err := b.NewTab(ctx)

RELATED FILES:
  - internal/engine/cycler.go
*/

package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/daryltucker/page-cycler/internal/output"
	"github.com/daryltucker/page-cycler/internal/wait"
)

// Options controls the browser launch.
type Options struct {
	Bin          string
	Headless     bool
	UserDataDir  string
	ExtraArgs    []string
	PollInterval time.Duration
}

// Browser is a launched browser process and its CDP connection.
type Browser struct {
	launcher *launcher.Launcher
	rod      *rod.Browser
	opts     Options
}

// Launch starts a browser and connects to it.
func Launch(ctx context.Context, opts Options) (*Browser, error) {
	l := launcher.New().Context(ctx).Headless(opts.Headless)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	if opts.UserDataDir != "" {
		l = l.UserDataDir(opts.UserDataDir)
	}
	l = l.Set(flags.Flag("js-flags"), "--expose-gc")
	for _, arg := range opts.ExtraArgs {
		name, value := splitArg(arg)
		if value == "" {
			l = l.Set(flags.Flag(name))
		} else {
			l = l.Set(flags.Flag(name), value)
		}
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().Context(ctx).ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser at %s: %w", u, err)
	}

	output.Logger.Info("Browser launched", "pid", l.PID(), "headless", opts.Headless)
	return &Browser{launcher: l, rod: b, opts: opts}, nil
}

// splitArg turns "--name=value" into ("name", "value").
func splitArg(arg string) (string, string) {
	arg = strings.TrimLeft(arg, "-")
	name, value, _ := strings.Cut(arg, "=")
	return name, value
}

// PID returns the browser process id.
func (b *Browser) PID() int {
	return b.launcher.PID()
}

// NewTab opens a blank tab.
func (b *Browser) NewTab(ctx context.Context) (*Tab, error) {
	p, err := b.rod.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	if err := (proto.PerformanceEnable{}).Call(p); err != nil {
		return nil, fmt.Errorf("failed to enable performance domain: %w", err)
	}
	interval := b.opts.PollInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	t := &Tab{page: p, interval: interval, injected: make(map[string]bool)}
	t.addScript = t.evalOnNewDocument
	return t, nil
}

// Close shuts the browser down and removes its temporary profile.
func (b *Browser) Close() error {
	err := b.rod.Close()
	b.launcher.Kill()
	b.launcher.Cleanup()
	return err
}

// Tab is one browser tab.
type Tab struct {
	page      *rod.Page
	interval  time.Duration
	injected  map[string]bool
	addScript func(ctx context.Context, source string) error
}

// Navigate loads url and returns once the new document has committed, so
// nothing evaluated afterwards can see the outgoing document.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	p := t.page.Context(ctx)
	committed := p.WaitNavigation(proto.PageLifecycleEventNameInit)
	if err := p.Navigate(url); err != nil {
		return err
	}
	committed()
	return ctx.Err()
}

// ClearCache drops the browser's HTTP cache.
func (t *Tab) ClearCache(ctx context.Context) error {
	return (proto.NetworkClearBrowserCache{}).Call(t.page.Context(ctx))
}

// InjectOnCommitScript runs source in every document committed from now
// on. Injecting the same source twice is a no-op.
func (t *Tab) InjectOnCommitScript(ctx context.Context, source string) error {
	if t.injected[source] {
		return nil
	}
	if err := t.addScript(ctx, source); err != nil {
		return err
	}
	t.injected[source] = true
	return nil
}

func (t *Tab) evalOnNewDocument(ctx context.Context, source string) error {
	_, err := t.page.Context(ctx).EvalOnNewDocument(source)
	return err
}

// Evaluate runs a JS function (e.g. "() => document.title") in the page and
// returns its JSON value.
func (t *Tab) Evaluate(ctx context.Context, expr string) (any, error) {
	obj, err := t.page.Context(ctx).Eval(expr)
	if err != nil {
		return nil, err
	}
	return obj.Value.Val(), nil
}

// WaitForExpression polls expr until it is truthy.
func (t *Tab) WaitForExpression(ctx context.Context, expr string, timeout time.Duration) error {
	return wait.For(ctx, timeout, t.interval, func(ctx context.Context) (bool, error) {
		v, err := t.Evaluate(ctx, expr)
		if err != nil {
			// The document is replaced while navigating; try again.
			output.Logger.Debug("Evaluate failed while waiting", "expr", expr, "error", err)
			return false, nil
		}
		return truthy(v), nil
	})
}

// PerformanceMetrics returns the CDP Performance.getMetrics values by name.
func (t *Tab) PerformanceMetrics(ctx context.Context) (map[string]float64, error) {
	res, err := (proto.PerformanceGetMetrics{}).Call(t.page.Context(ctx))
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(res.Metrics))
	for _, m := range res.Metrics {
		out[m.Name] = m.Value
	}
	return out, nil
}

func (t *Tab) CollectGarbage(ctx context.Context) error {
	return (proto.HeapProfilerCollectGarbage{}).Call(t.page.Context(ctx))
}

// truthy mirrors JavaScript truthiness for JSON values.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}
