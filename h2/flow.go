package h2

import "sync"

// flowWindow is a single flow-control window (spec §4.3): an int32
// that can legitimately go negative for a short time (after we shrink
// our advertised INITIAL_WINDOW_SIZE) but must never overflow past
// 2^31-1 in the positive direction.
type flowWindow struct {
	mu   sync.Mutex
	size int64 // kept wider than int32 so Add() can detect overflow before truncating
	cond *sync.Cond
}

func newFlowWindow(initial int32) *flowWindow {
	w := &flowWindow{size: int64(initial)}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Size returns the current window value.
func (w *flowWindow) Size() int32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return int32(w.size)
}

// Consume subtracts n (received data, or data we're about to send)
// from the window.
func (w *flowWindow) Consume(n int32) {
	w.mu.Lock()
	w.size -= int64(n)
	w.mu.Unlock()
}

// Increment adds n to the window (a WINDOW_UPDATE, or a positive
// INITIAL_WINDOW_SIZE delta) and wakes any writer blocked on
// AwaitCredit. Returns ErrWindowOverflow if the result would exceed
// 2^31-1.
func (w *flowWindow) Increment(n int32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n == 0 {
		return nil
	}
	next := w.size + int64(n)
	if next > MaxWindowSize {
		return ErrWindowOverflow
	}
	w.size = next
	w.cond.Broadcast()
	return nil
}

// ApplyDelta adjusts the window by a (possibly negative) delta — used
// when INITIAL_WINDOW_SIZE changes mid-connection (spec §4.3: "every
// existing stream's send window is adjusted by the delta; the
// resulting value may temporarily be negative"). It never errors:
// negative results are allowed here, only Increment enforces the
// positive ceiling.
func (w *flowWindow) ApplyDelta(delta int32) {
	w.mu.Lock()
	w.size += int64(delta)
	w.cond.Broadcast()
	w.mu.Unlock()
}

// AwaitCredit blocks until the window is > 0 or closed reports true,
// then returns min(window, max). Used by Session.WriteData before
// framing a DATA chunk.
func (w *flowWindow) AwaitCredit(max int32, closed func() bool) int32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.size <= 0 {
		if closed() {
			return 0
		}
		w.cond.Wait()
	}
	avail := w.size
	if avail > int64(max) {
		avail = int64(max)
	}
	return int32(avail)
}

// Close wakes every waiter so they can observe the closed() callback
// and return instead of blocking forever.
func (w *flowWindow) Close() {
	w.mu.Lock()
	w.cond.Broadcast()
	w.mu.Unlock()
}

// windowUpdateThreshold is the fraction of the nominal window that
// must accumulate as unacknowledged-but-consumed bytes before we
// bother emitting a WINDOW_UPDATE (spec §4.3 policy: "only when the
// accumulated unacked amount exceeds ¼ of the window's nominal
// size").
const windowUpdateThresholdDivisor = 4

// recvAccounting tracks bytes received vs. bytes the application has
// consumed, deciding when a WINDOW_UPDATE is owed.
type recvAccounting struct {
	mu       sync.Mutex
	nominal  int32
	unacked  int32
}

func newRecvAccounting(nominal int32) *recvAccounting {
	return &recvAccounting{nominal: nominal}
}

// Consumed records that the application read n more bytes and
// reports the increment to send (0 if below threshold).
func (r *recvAccounting) Consumed(n int32) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unacked += n
	if r.unacked > r.nominal/windowUpdateThresholdDivisor {
		inc := r.unacked
		r.unacked = 0
		return inc
	}
	return 0
}

// SetNominal updates the nominal window size (e.g. after a local
// INITIAL_WINDOW_SIZE change).
func (r *recvAccounting) SetNominal(n int32) {
	r.mu.Lock()
	r.nominal = n
	r.mu.Unlock()
}
