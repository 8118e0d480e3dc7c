package presenter

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Brownie44l1/noise2img/internal/pipeline"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func start(t *testing.T, p *Presenter) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-errCh)
	})
}

func result(id string) *pipeline.Result {
	return &pipeline.Result{ID: id, Image: image.NewRGBA(image.Rect(0, 0, 2, 2))}
}

// gated renders block until a value is sent on the returned channel.
func gated() (RenderFunc, chan error) {
	gate := make(chan error)
	n := 0
	return func(ctx context.Context) (*pipeline.Result, error) {
		n++
		id := []string{"first", "second", "third"}[n-1]
		select {
		case err := <-gate:
			if err != nil {
				return nil, err
			}
			return result(id), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, gate
}

func waitFor(t *testing.T, p *Presenter, state State) Event {
	t.Helper()
	require.Eventually(t, func() bool { return p.Snapshot().State == state }, time.Second, time.Millisecond)
	return p.Snapshot()
}

func TestTriggerLifecycle(t *testing.T) {
	render, gate := gated()
	p := New(render, 0)
	start(t, p)

	assert.Equal(t, Idle, p.Snapshot().State)
	img, id := p.Image()
	assert.Nil(t, img)
	assert.Empty(t, id)

	token, err := p.Trigger()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), token)
	assert.Equal(t, Generating, p.Snapshot().State)

	busy, err := p.Trigger()
	require.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, token, busy)

	gate <- nil
	ev := waitFor(t, p, Idle)
	assert.Equal(t, "first", ev.ImageID)
	assert.Equal(t, uint64(1), ev.Token)

	img, id = p.Image()
	assert.NotNil(t, img)
	assert.Equal(t, "first", id)

	token, err = p.Trigger()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), token)
	gate <- nil
	assert.Equal(t, "second", waitFor(t, p, Idle).ImageID)
}

func TestTriggerFailure(t *testing.T) {
	render, gate := gated()
	p := New(render, 0)
	start(t, p)

	_, err := p.Trigger()
	require.NoError(t, err)
	gate <- errors.New("inference failed: session run")

	ev := waitFor(t, p, Failed)
	assert.Equal(t, "inference failed: session run", ev.Error)
	img, _ := p.Image()
	assert.Nil(t, img)

	// a failed generation can be retried
	_, err = p.Trigger()
	require.NoError(t, err)
	assert.Empty(t, p.Snapshot().Error)
	gate <- nil
	assert.Equal(t, "second", waitFor(t, p, Idle).ImageID)
}

func TestTriggerTimeout(t *testing.T) {
	render, _ := gated()
	p := New(render, 10*time.Millisecond)
	start(t, p)

	_, err := p.Trigger()
	require.NoError(t, err)

	ev := waitFor(t, p, Failed)
	assert.Contains(t, ev.Error, "generation timed out after 10ms")
}

func TestCancelDropsLateResult(t *testing.T) {
	late := make(chan struct{})
	p := New(func(ctx context.Context) (*pipeline.Result, error) {
		<-ctx.Done()
		<-late
		// the result arrives after the request was abandoned
		return result("late"), nil
	}, 0)
	start(t, p)

	assert.False(t, p.Cancel())

	_, err := p.Trigger()
	require.NoError(t, err)
	require.True(t, p.Cancel())
	assert.Equal(t, Idle, p.Snapshot().State)

	events, unsubscribe := p.Subscribe()
	defer unsubscribe()

	close(late)

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}

	img, id := p.Image()
	assert.Nil(t, img)
	assert.Empty(t, id)
}

func TestSubscribe(t *testing.T) {
	render, gate := gated()
	p := New(render, 0)
	start(t, p)

	events, unsubscribe := p.Subscribe()

	_, err := p.Trigger()
	require.NoError(t, err)
	gate <- nil

	first := <-events
	assert.Equal(t, Generating, first.State)
	second := <-events
	assert.Equal(t, Idle, second.State)
	assert.Equal(t, "first", second.ImageID)

	unsubscribe()
	unsubscribe()
	_, ok := <-events
	assert.False(t, ok)
}

func TestClose(t *testing.T) {
	render, _ := gated()
	p := New(render, 0)

	events, _ := p.Subscribe()

	_, err := p.Trigger()
	require.NoError(t, err)
	<-events

	// Close without Run: the in-flight render sees its context cancelled
	p.Close()
	p.Close()

	_, ok := <-events
	assert.False(t, ok)

	_, err = p.Trigger()
	require.ErrorIs(t, err, ErrClosed)

	closed, _ := p.Subscribe()
	_, ok = <-closed
	assert.False(t, ok)
}

func TestStateText(t *testing.T) {
	b, err := Failed.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "failed", string(b))
	assert.Equal(t, "State(9)", State(9).String())
}
