package input

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AbyssalKaz/Console101Farm/internal/logging"
)

// DefaultHotkeyInterval is how often hotkey state is sampled
const DefaultHotkeyInterval = 50 * time.Millisecond

type hotkey struct {
	name string
	key  string
	fn   func()
	down bool
}

// HotkeyWatcher polls key state and fires a callback when a registered key
// is released. Callbacks run on the polling goroutine and must not call Stop.
type HotkeyWatcher struct {
	keys     KeyState
	interval time.Duration
	logger   *logging.Logger

	mu      sync.Mutex
	hotkeys []*hotkey
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewHotkeyWatcher creates a watcher over keys
func NewHotkeyWatcher(keys KeyState, logger *logging.Logger) *HotkeyWatcher {
	if logger == nil {
		logger = logging.NewLogger("Hotkeys")
	}
	return &HotkeyWatcher{
		keys:     keys,
		interval: DefaultHotkeyInterval,
		logger:   logger,
	}
}

// Register binds fn to key. An empty or unknown key leaves the hotkey unbound.
func (w *HotkeyWatcher) Register(name, key string, fn func()) {
	if key == "" {
		return
	}
	if !IsKnownKey(key) {
		w.logger.Warn(fmt.Sprintf("Hotkey %s: unknown key %q", name, key))
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.hotkeys = append(w.hotkeys, &hotkey{name: name, key: key, fn: fn})
}

// Start begins polling. Calling Start twice is a no-op.
func (w *HotkeyWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx, w.done)
}

// Stop ends polling and waits for the loop to exit
func (w *HotkeyWatcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *HotkeyWatcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

// poll samples every hotkey once and fires those released since the last poll
func (w *HotkeyWatcher) poll() {
	w.mu.Lock()
	var fired []*hotkey
	for _, h := range w.hotkeys {
		pressed := w.keys.IsKeyPressed(h.key)
		if h.down && !pressed {
			fired = append(fired, h)
		}
		h.down = pressed
	}
	w.mu.Unlock()

	for _, h := range fired {
		w.fire(h)
	}
}

func (w *HotkeyWatcher) fire(h *hotkey) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error(fmt.Sprintf("Hotkey %s handler panicked", h.name), fmt.Errorf("%v", r))
		}
	}()
	w.logger.Debug(fmt.Sprintf("Hotkey %s (%s)", h.name, h.key))
	h.fn()
}
