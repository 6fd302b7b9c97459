package audit

import (
	"log"
	"sync"
	"time"
)

// Decision outcomes.
const (
	OutcomeAllow    = "allow"
	OutcomeDeny     = "deny"
	OutcomeRedirect = "redirect"
)

// Decision is one authorization verdict made by the guard or the gateway.
type Decision struct {
	Time     time.Time `json:"time"`
	Source   string    `json:"source"` // "guard" or "gateway"
	Subject  string    `json:"subject,omitempty"`
	Path     string    `json:"path"`
	Resource string    `json:"resource,omitempty"`
	Action   string    `json:"action,omitempty"`
	Rule     string    `json:"rule,omitempty"` // what fired: public, no_token, expired, full_access, permission, ...
	Outcome  string    `json:"outcome"`
}

// Recorder accepts authorization decisions.
type Recorder interface {
	Record(d Decision)
}

// Trail keeps recent decisions in a bounded in-memory ring. When full, the
// oldest entries are dropped; a background ticker flushes drop counts to the
// log so silent loss is visible.
type Trail struct {
	mu      sync.Mutex
	events  []Decision
	maxSize int
	dropped int
	ticker  *time.Ticker
	done    chan struct{}
}

// NewTrail creates a trail holding at most maxSize decisions, reporting
// drops every flushInterval.
func NewTrail(maxSize int, flushInterval time.Duration) *Trail {
	t := &Trail{
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	t.ticker = time.NewTicker(flushInterval)
	go t.run()
	return t
}

func (t *Trail) run() {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			t.reportDrops()
		}
	}
}

// Record adds a decision, evicting the oldest when the ring is full.
func (t *Trail) Record(d Decision) {
	if d.Time.IsZero() {
		d.Time = time.Now()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.events) >= t.maxSize {
		copy(t.events, t.events[1:])
		t.events = t.events[:len(t.events)-1]
		t.dropped++
	}
	t.events = append(t.events, d)
}

// Recent returns up to n decisions, newest first.
func (t *Trail) Recent(n int) []Decision {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n <= 0 || n > len(t.events) {
		n = len(t.events)
	}
	out := make([]Decision, n)
	for i := 0; i < n; i++ {
		out[i] = t.events[len(t.events)-1-i]
	}
	return out
}

func (t *Trail) reportDrops() {
	t.mu.Lock()
	dropped := t.dropped
	t.dropped = 0
	t.mu.Unlock()
	if dropped > 0 {
		log.Printf("WARN: audit trail dropped %d decisions", dropped)
	}
}

// Stop halts the background ticker and reports any pending drops.
func (t *Trail) Stop() {
	if t.ticker != nil {
		t.ticker.Stop()
	}
	close(t.done)
	t.reportDrops()
}

// Noop discards all decisions. Used when auditing is disabled.
type Noop struct{}

func (Noop) Record(Decision) {}
