package game

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/njyeung/sprunki/fullscreen"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// IOSUserAgent is sent by EmulateIOS
const IOSUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1"

var (
	ErrNotStarted = errors.New("game page not started")
	ErrNoGame     = errors.New("game section not found on page")
)

// Options configures a ChromePage
type Options struct {
	URL         string
	UserAgent   string // empty keeps Chrome's
	UserDataDir string // empty uses a throwaway profile
	LoadWait    time.Duration
	Logger      *zap.Logger
}

// ChromePage drives the game page in a Chrome tab. It implements
// fullscreen.Surface.
type ChromePage struct {
	opts Options

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
	events  chan Event
	logger  *zap.Logger
}

var _ fullscreen.Surface = (*ChromePage)(nil)

func NewChromePage(opts Options) *ChromePage {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.LoadWait == 0 {
		opts.LoadWait = 2 * time.Second
	}
	return &ChromePage{
		opts:   opts,
		events: make(chan Event, 100),
		logger: opts.Logger,
	}
}

// Start launches Chrome and opens the game page
func (p *ChromePage) Start(headless bool) error {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("headless", headless),
		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),
	)
	if p.opts.UserDataDir != "" {
		if err := os.MkdirAll(p.opts.UserDataDir, 0755); err != nil {
			return errors.Wrap(err, "failed to create user data dir")
		}
		allocOpts = append(allocOpts, chromedp.UserDataDir(p.opts.UserDataDir))
	}
	if p.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(p.opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	p.allocCancel = allocCancel

	ctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(p.logger.Sugar().Infof))
	p.ctx = ctx
	p.cancel = cancel

	chromedp.ListenTarget(ctx, p.handleTargetEvent)

	// the binding and listeners must exist before the page's own scripts run
	err := chromedp.Run(ctx,
		runtime.Enable(),
		runtime.AddBinding(bindingName),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(listenScript).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return errors.Wrap(err, "failed to install page listeners")
	}

	if err := chromedp.Run(ctx,
		chromedp.Navigate(p.opts.URL),
		chromedp.Sleep(p.opts.LoadWait),
	); err != nil {
		return errors.Wrap(err, "failed to navigate")
	}
	p.logger.Info("game page opened", zap.String("url", p.opts.URL), zap.Bool("headless", headless))
	return nil
}

// Stop closes the browser
func (p *ChromePage) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	if p.cancel != nil {
		p.cancel()
	}
	if p.allocCancel != nil {
		p.allocCancel()
	}
	close(p.events)
}

// Events reports fullscreen, visibility and navigation changes of the page
func (p *ChromePage) Events() <-chan Event {
	return p.events
}

func (p *ChromePage) handleTargetEvent(ev interface{}) {
	switch e := ev.(type) {
	case *runtime.EventBindingCalled:
		if e.Name != bindingName {
			return
		}
		event, err := parseEvent(e.Payload)
		if err != nil {
			p.logger.Warn("bad page event", zap.Error(err))
			return
		}
		p.emit(event)
	case *page.EventFrameNavigated:
		if e.Frame != nil && e.Frame.ParentID == "" {
			p.emit(Event{Type: EventNavigation})
		}
	}
}

func (p *ChromePage) emit(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	select {
	case p.events <- ev:
	default:
		p.logger.Warn("page event dropped", zap.Stringer("event", ev.Type))
	}
}

func (p *ChromePage) eval(script string, gesture bool) (bool, error) {
	if p.ctx == nil {
		return false, ErrNotStarted
	}
	var ok bool
	err := chromedp.Run(p.ctx, chromedp.Evaluate(script, &ok, func(params *runtime.EvaluateParams) *runtime.EvaluateParams {
		return params.WithAwaitPromise(true).WithUserGesture(gesture)
	}))
	return ok, err
}

// UserAgent returns the user agent the page sees
func (p *ChromePage) UserAgent() (string, error) {
	if p.ctx == nil {
		return "", ErrNotStarted
	}
	var ua string
	err := chromedp.Run(p.ctx, chromedp.Evaluate(`navigator.userAgent`, &ua))
	return ua, errors.Wrap(err, "read user agent")
}

// Play hides the intro, shows the game and tells the game frame audio may start
func (p *ChromePage) Play(device fullscreen.Device) error {
	ok, err := p.eval(playScript, true)
	if err != nil {
		return errors.Wrap(err, "start game")
	}
	if !ok {
		return ErrNoGame
	}

	action := AudioAction
	if device == fullscreen.IOSDevice {
		action = IOSAudioAction
	}
	sent, err := p.eval(audioScript(action), true)
	if err != nil {
		return errors.Wrap(err, "enable audio")
	}
	if !sent {
		p.logger.Warn("game frame not ready for audio message")
	}
	return nil
}

// Apply implements fullscreen.Surface
func (p *ChromePage) Apply(mode fullscreen.Mode) error {
	script, err := applyScript(mode)
	if err != nil {
		return err
	}
	ok, err := p.eval(script, mode == fullscreen.Native)
	if err != nil {
		return errors.Wrapf(err, "apply %s", mode)
	}
	if !ok {
		return ErrNoGame
	}
	return nil
}

// LockLandscape implements fullscreen.Surface
func (p *ChromePage) LockLandscape() error {
	_, err := p.eval(lockScript, true)
	return errors.Wrap(err, "lock orientation")
}

// UnlockOrientation implements fullscreen.Surface
func (p *ChromePage) UnlockOrientation() {
	if _, err := p.eval(unlockScript, false); err != nil {
		p.logger.Debug("orientation unlock failed", zap.Error(err))
	}
}

// EmulateIOS makes the tab look like an iPhone: user agent, touch and a
// portrait phone viewport
func (p *ChromePage) EmulateIOS() error {
	if p.ctx == nil {
		return ErrNotStarted
	}
	err := chromedp.Run(p.ctx,
		emulation.SetUserAgentOverride(IOSUserAgent).WithPlatform("iPhone"),
		emulation.SetDeviceMetricsOverride(390, 844, 3, true),
		emulation.SetTouchEmulationEnabled(true),
		chromedp.Reload(),
		chromedp.Sleep(p.opts.LoadWait),
	)
	return errors.Wrap(err, "emulate iOS")
}

// PressEscape sends Esc the way a user leaves native fullscreen
func (p *ChromePage) PressEscape() error {
	if p.ctx == nil {
		return ErrNotStarted
	}
	return chromedp.Run(p.ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return input.DispatchKeyEvent(input.KeyDown).
				WithKey("Escape").
				WithCode("Escape").
				WithWindowsVirtualKeyCode(27).
				WithNativeVirtualKeyCode(27).
				Do(ctx)
		}),
	)
}
