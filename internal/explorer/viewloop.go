package explorer

import (
	"context"
	"log"
	"sync"

	"github.com/jengzang/taxi-explorer-go/internal/params"
)

// ViewLoop drives re-rendering for one session. Parameter changes arrive
// through a params observer, viewport changes through PostViewport; the loop
// coalesces whatever is pending and renders the latest state. There is no
// ordering guarantee between the two event sources: last write wins. If the
// frame consumer lags, stale frames are dropped.
type ViewLoop struct {
	ex *Explorer

	mu       sync.Mutex
	viewport *ViewRequest // latest posted viewport, kept across renders
	dirty    bool

	wake   chan struct{}
	frames chan *RenderedView
	quit   chan struct{}
	wg     sync.WaitGroup
	obsID  int

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewViewLoop wires a loop to the explorer's parameter space. Call Start to
// begin rendering and Stop to tear down.
func NewViewLoop(ex *Explorer) *ViewLoop {
	l := &ViewLoop{
		ex:     ex,
		wake:   make(chan struct{}, 1),
		frames: make(chan *RenderedView, 1),
		quit:   make(chan struct{}),
	}
	l.obsID = ex.Params().Subscribe(func(params.Change) {
		l.markDirty(nil)
	})
	return l
}

// Frames delivers rendered views. The channel closes when the loop stops.
func (l *ViewLoop) Frames() <-chan *RenderedView { return l.frames }

// PostViewport records a viewport change and schedules a render. The posted
// viewport stays current for later parameter-driven renders.
func (l *ViewLoop) PostViewport(req ViewRequest) {
	l.markDirty(&req)
}

func (l *ViewLoop) markDirty(vp *ViewRequest) {
	l.mu.Lock()
	if vp != nil {
		l.viewport = vp
	}
	l.dirty = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Start launches the render loop and schedules an initial frame.
func (l *ViewLoop) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		l.wg.Add(1)
		go l.run(ctx)
		l.markDirty(nil)
	})
}

// Stop detaches the observer, ends the loop and closes Frames. Safe to call
// more than once.
func (l *ViewLoop) Stop() {
	l.stopOnce.Do(func() {
		l.ex.Params().Unsubscribe(l.obsID)
		close(l.quit)
		l.wg.Wait()
	})
}

func (l *ViewLoop) run(ctx context.Context) {
	defer l.wg.Done()
	defer close(l.frames)

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.quit:
			return
		case <-l.wake:
		}

		l.mu.Lock()
		if !l.dirty {
			l.mu.Unlock()
			continue
		}
		l.dirty = false
		vp := l.viewport
		l.mu.Unlock()

		view, err := l.ex.Render(ctx, vp)
		if err != nil {
			log.Printf("[ViewLoop] render failed: %v", err)
			continue
		}
		l.publish(view)
	}
}

// publish replaces any unconsumed frame with the fresh one.
func (l *ViewLoop) publish(view *RenderedView) {
	for {
		select {
		case l.frames <- view:
			return
		default:
		}
		select {
		case <-l.frames:
		default:
		}
	}
}
