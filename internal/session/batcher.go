package session

import (
	"sync"
	"time"

	"github.com/Aman-CERP/codesearch/internal/pipeline"
)

// DefaultBatchSize is the number of accumulated file messages that forces
// an immediate flush, when a connection doesn't configure one. Neither
// spec value is specified numerically, so these are chosen to keep one
// indexed round trip cheap while still coalescing a typical burst of
// saves.
const DefaultBatchSize = 50

// DefaultBatchIdleMs is how long a batch waits for more file messages
// before flushing on idle, when a connection doesn't configure one.
const DefaultBatchIdleMs = 200

// fileBatcher accumulates file messages for one connection and flushes
// them either once maxSize is reached or once idle elapses since the last
// addition, whichever comes first. The idle timer is reset on every Add,
// mirroring watcher.Debouncer's reset-on-add scheduling.
type fileBatcher struct {
	mu      sync.Mutex
	files   []pipeline.FileInput
	maxSize int
	idle    time.Duration
	timer   *time.Timer
	stopped bool
	onFlush func([]pipeline.FileInput)
}

func newFileBatcher(maxSize int, idle time.Duration, onFlush func([]pipeline.FileInput)) *fileBatcher {
	if maxSize <= 0 {
		maxSize = DefaultBatchSize
	}
	if idle <= 0 {
		idle = DefaultBatchIdleMs * time.Millisecond
	}
	return &fileBatcher{maxSize: maxSize, idle: idle, onFlush: onFlush}
}

// Add appends f to the pending batch, flushing immediately if maxSize is
// reached and otherwise (re)scheduling an idle flush.
func (b *fileBatcher) Add(f pipeline.FileInput) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return
	}

	b.files = append(b.files, f)
	if len(b.files) >= b.maxSize {
		b.flushLocked()
		return
	}
	b.scheduleLocked()
}

func (b *fileBatcher) scheduleLocked() {
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.idle, b.flushTimer)
}

func (b *fileBatcher) flushTimer() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

func (b *fileBatcher) flushLocked() {
	if b.stopped || len(b.files) == 0 {
		return
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	batch := b.files
	b.files = nil
	go b.onFlush(batch)
}

// Stop cancels the idle timer and discards any unflushed files; call this
// when the connection is tearing down, not when a final flush is wanted.
func (b *fileBatcher) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	if b.timer != nil {
		b.timer.Stop()
	}
}
