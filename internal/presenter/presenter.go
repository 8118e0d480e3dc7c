// Package presenter owns the view state of the generator UI. Renders run on
// background goroutines and hand their results to Run, which discards any
// result whose request token is no longer current.
package presenter

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/Brownie44l1/noise2img/internal/pipeline"
)

var (
	ErrBusy   = errors.New("generation already in progress")
	ErrClosed = errors.New("presenter is closed")
)

type State int

const (
	Idle State = iota
	Generating
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Generating:
		return "generating"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Event struct {
	State     State     `json:"state"`
	Token     uint64    `json:"token"`
	ImageID   string    `json:"image_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RenderFunc produces one display image. It should return promptly once ctx
// is done.
type RenderFunc func(ctx context.Context) (*pipeline.Result, error)

type completion struct {
	token  uint64
	result *pipeline.Result
	err    error
}

const subscriberBuffer = 16

type Presenter struct {
	render  RenderFunc
	timeout time.Duration

	ctx         context.Context
	stop        context.CancelFunc
	done        chan struct{}
	completions chan completion
	wg          sync.WaitGroup

	mu     sync.Mutex
	closed bool
	view   Event
	image  image.Image
	cancel context.CancelFunc
	subs   map[chan Event]struct{}
}

// New returns an idle presenter. timeout bounds each render; zero means no
// deadline.
func New(render RenderFunc, timeout time.Duration) *Presenter {
	ctx, stop := context.WithCancel(context.Background())
	return &Presenter{
		render:      render,
		timeout:     timeout,
		ctx:         ctx,
		stop:        stop,
		done:        make(chan struct{}),
		completions: make(chan completion),
		view:        Event{State: Idle, UpdatedAt: time.Now()},
		subs:        make(map[chan Event]struct{}),
	}
}

// Trigger moves the view to Generating and starts a render in the background.
// It returns the request token that the render's result will carry.
func (p *Presenter) Trigger() (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrClosed
	}

	if p.view.State == Generating {
		return p.view.Token, ErrBusy
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if p.timeout > 0 {
		ctx, cancel = context.WithTimeout(p.ctx, p.timeout)
	} else {
		ctx, cancel = context.WithCancel(p.ctx)
	}
	p.cancel = cancel

	p.view.Token++
	p.view.State = Generating
	p.view.Error = ""
	p.view.UpdatedAt = time.Now()
	p.publishLocked()

	token := p.view.Token
	p.wg.Add(1)
	go p.generate(ctx, cancel, token)

	slog.Info("generation started", "token", token)
	return token, nil
}

// Cancel abandons the in-flight render and returns the view to Idle with the
// previous image. It reports whether anything was cancelled.
func (p *Presenter) Cancel() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.view.State != Generating {
		return false
	}

	p.cancel()
	p.view.State = Idle
	p.view.UpdatedAt = time.Now()
	p.publishLocked()

	slog.Info("generation cancelled", "token", p.view.Token)
	return true
}

func (p *Presenter) generate(ctx context.Context, cancel context.CancelFunc, token uint64) {
	defer p.wg.Done()
	defer cancel()

	res, err := p.render(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("generation timed out after %s: %w", p.timeout, err)
	}

	select {
	case p.completions <- completion{token: token, result: res, err: err}:
	case <-p.done:
	}
}

// Run applies render completions until ctx is done or the presenter is
// closed. Exactly one Run should be active.
func (p *Presenter) Run(ctx context.Context) error {
	defer p.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.done:
			return nil
		case c := <-p.completions:
			p.apply(c)
		}
	}
}

func (p *Presenter) apply(c completion) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c.token != p.view.Token || p.view.State != Generating {
		slog.Debug("dropping stale generation", "token", c.token, "current", p.view.Token)
		return
	}

	if c.err != nil {
		slog.Error("generation failed", "token", c.token, "error", c.err)
		p.view.State = Failed
		p.view.Error = c.err.Error()
	} else {
		slog.Info("generation finished", "token", c.token, "id", c.result.ID, "elapsed", c.result.Elapsed)
		p.image = c.result.Image
		p.view.State = Idle
		p.view.ImageID = c.result.ID
		p.view.Error = ""
	}

	p.view.UpdatedAt = time.Now()
	p.publishLocked()
}

func (p *Presenter) Snapshot() Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// Image returns the image currently on display and its id, or nil before the
// first successful generation.
func (p *Presenter) Image() (image.Image, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.image, p.view.ImageID
}

// Subscribe returns a channel receiving every subsequent Event. Events are
// dropped for a subscriber that falls behind. The channel is closed by the
// returned func or by Close.
func (p *Presenter) Subscribe() (<-chan Event, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if p.closed {
		close(ch)
		return ch, func() {}
	}

	p.subs[ch] = struct{}{}
	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subs[ch]; ok {
			delete(p.subs, ch)
			close(ch)
		}
	}
}

func (p *Presenter) publishLocked() {
	for ch := range p.subs {
		select {
		case ch <- p.view:
		default:
			slog.Debug("subscriber behind, dropping event", "state", p.view.State)
		}
	}
}

// Close cancels in-flight renders, waits for them to return and closes all
// subscriptions. It is safe to call more than once.
func (p *Presenter) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.stop()
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subs {
		delete(p.subs, ch)
		close(ch)
	}
}
