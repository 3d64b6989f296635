package browser

import (
	"sync"
	"testing"
	"time"

	"github.com/entrhq/formless/pkg/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type unobserveLog struct {
	mu  sync.Mutex
	ids []int
}

func (u *unobserveLog) record(id int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ids = append(u.ids, id)
	return nil
}

func (u *unobserveLog) get() []int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]int(nil), u.ids...)
}

func noInstall(int) error { return nil }

func TestDispatcher_DeliversInOrder(t *testing.T) {
	d := newDispatcher(nil)
	defer d.stop()

	got := make(chan int, 10)
	sub, err := d.register(func(p map[string]any) {
		n, _ := toInt(p["n"])
		got <- n
	}, noInstall)
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		d.notify(float64(sub.id), map[string]any{"n": i})
	}

	for want := 1; want <= 5; want++ {
		select {
		case n := <-got:
			assert.Equal(t, want, n)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for delivery %d", want)
		}
	}
}

func TestDispatcher_CallbacksNeverOverlap(t *testing.T) {
	d := newDispatcher(nil)
	defer d.stop()

	var (
		mu      sync.Mutex
		running int
		maxSeen int
		wg      sync.WaitGroup
	)
	wg.Add(20)
	sub, err := d.register(func(map[string]any) {
		mu.Lock()
		running++
		if running > maxSeen {
			maxSeen = running
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		running--
		mu.Unlock()
		wg.Done()
	}, noInstall)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		go d.notify(sub.id, nil)
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestDispatcher_ClosedSubscriptionIsDropped(t *testing.T) {
	log := &unobserveLog{}
	d := newDispatcher(log.record)
	defer d.stop()

	var calls int
	var mu sync.Mutex
	sub, err := d.register(func(map[string]any) {
		mu.Lock()
		calls++
		mu.Unlock()
	}, noInstall)
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	d.notify(sub.id, map[string]any{})

	// A second subscription proves the queue was drained past the dead one.
	done := make(chan struct{})
	other, err := d.register(func(map[string]any) { close(done) }, noInstall)
	require.NoError(t, err)
	d.notify(other.id, nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
	mu.Lock()
	assert.Zero(t, calls)
	mu.Unlock()
	assert.Equal(t, []int{sub.id}, log.get())
	assert.Equal(t, 1, d.active())
}

func TestDispatcher_InstallFailure(t *testing.T) {
	d := newDispatcher(nil)
	defer d.stop()

	_, err := d.register(func(map[string]any) {}, func(int) error { return assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, d.active())
}

func TestDispatcher_ResetSkipsPage(t *testing.T) {
	log := &unobserveLog{}
	d := newDispatcher(log.record)
	defer d.stop()

	sub, err := d.register(func(map[string]any) {}, noInstall)
	require.NoError(t, err)

	d.reset()
	assert.Zero(t, d.active())
	assert.True(t, sub.isClosed())
	require.NoError(t, sub.Close())
	assert.Empty(t, log.get())
}

func TestDispatcher_Stopped(t *testing.T) {
	d := newDispatcher(nil)
	d.stop()
	d.stop()

	_, err := d.register(func(map[string]any) {}, noInstall)
	assert.ErrorIs(t, err, errDocumentClosed)
	assert.Nil(t, d.notify(1, nil))
}

func TestDispatcher_NotifyIgnoresBadArgs(t *testing.T) {
	d := newDispatcher(nil)
	defer d.stop()

	assert.Nil(t, d.notify())
	assert.Nil(t, d.notify("one"))
	assert.Nil(t, d.notify(1.5))

	d.mu.Lock()
	assert.Empty(t, d.queue)
	d.mu.Unlock()
}

func TestDecodePayloads(t *testing.T) {
	assert.Equal(t,
		dom.MutationRecord{Added: 2, Removed: 1},
		decodeMutation(map[string]any{"added": 2, "removed": float64(1)}))

	assert.Equal(t,
		dom.IntersectionEntry{Intersecting: true, Box: dom.Rect{X: 10, Y: 20.5, Width: 100, Height: 30}},
		decodeIntersection(map[string]any{"intersecting": true, "x": 10, "y": 20.5, "width": 100, "height": float64(30)}))

	assert.Equal(t, dom.IntersectionEntry{}, decodeIntersection(nil))

	ev, err := decodeViewport(map[string]any{"kind": "scroll"})
	require.NoError(t, err)
	assert.Equal(t, dom.ViewportScroll, ev.Kind)

	ev, err = decodeViewport(map[string]any{"kind": "resize"})
	require.NoError(t, err)
	assert.Equal(t, dom.ViewportResize, ev.Kind)

	_, err = decodeViewport(map[string]any{"kind": "zoom"})
	assert.Error(t, err)
}

func TestToInt(t *testing.T) {
	tests := []struct {
		in     any
		want   int
		wantOK bool
	}{
		{in: 3, want: 3, wantOK: true},
		{in: float64(7), want: 7, wantOK: true},
		{in: int64(9), want: 9, wantOK: true},
		{in: 2.5},
		{in: "4"},
		{in: nil},
	}
	for _, tt := range tests {
		got, ok := toInt(tt.in)
		assert.Equal(t, tt.wantOK, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}
