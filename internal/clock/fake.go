package clock

import (
	"sync"
	"time"
)

// Fake is a manually advanced Clock. Ticks are delivered on an unbuffered
// channel, so Tick blocks until the consumer has received it.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

// NewFake returns a Fake clock starting at now.
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	t := &fakeTicker{interval: d, c: make(chan time.Time), stopped: make(chan struct{})}
	f.tickers = append(f.tickers, t)
	f.mu.Unlock()
	return t
}

// Tick advances time by the interval of the most recent ticker and delivers
// one tick to it. It returns false if the ticker has been stopped.
func (f *Fake) Tick() bool {
	f.mu.Lock()
	if len(f.tickers) == 0 {
		f.mu.Unlock()
		return false
	}
	t := f.tickers[len(f.tickers)-1]
	f.now = f.now.Add(t.interval)
	now := f.now
	f.mu.Unlock()

	select {
	case t.c <- now:
		return true
	case <-t.stopped:
		return false
	}
}

// Stopped reports whether every ticker created so far has been stopped.
func (f *Fake) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickers {
		select {
		case <-t.stopped:
		default:
			return false
		}
	}
	return true
}

type fakeTicker struct {
	interval time.Duration
	c        chan time.Time
	once     sync.Once
	stopped  chan struct{}
}

func (t *fakeTicker) C() <-chan time.Time {
	return t.c
}

func (t *fakeTicker) Stop() {
	t.once.Do(func() { close(t.stopped) })
}
