// Package engine provides the clock scheduler: a set of independently
// timed periodic tasks that read-modify-write shared state under the
// owner's lock.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/astral-district/internal/clock"
)

var (
	ErrInvalidInterval = errors.New("task interval must be positive")
	ErrUnknownTask     = errors.New("unknown task")
	ErrDuplicateTask   = errors.New("task already registered")
)

// Task is one periodic job. Run is always called with the scheduler's
// lock held, so a tick is a single uninterrupted read-modify-write.
type Task struct {
	Name         string
	Interval     time.Duration
	FastInterval time.Duration // 0 = same as Interval
	Run          func(now time.Time)
}

func (t Task) interval(fast bool) time.Duration {
	if fast && t.FastInterval > 0 {
		return t.FastInterval
	}
	return t.Interval
}

type entry struct {
	task    Task
	gen     uint64 // bumped on every stop; stale ticks compare against it
	running bool
	stop    chan struct{}
	lastRun time.Time
}

// Scheduler owns exactly one instance of each registered task.
//
// Every method except Wait must be called with the lock passed to
// NewScheduler held. Tick goroutines take the same lock before running.
type Scheduler struct {
	lock  sync.Locker
	clk   clock.Clock
	fast  bool
	tasks map[string]*entry
	wg    sync.WaitGroup
}

// NewScheduler creates a scheduler guarding its ticks with lock.
func NewScheduler(lock sync.Locker, clk clock.Clock) *Scheduler {
	return &Scheduler{
		lock:  lock,
		clk:   clk,
		tasks: make(map[string]*entry),
	}
}

// Register adds a task in the stopped state.
func (s *Scheduler) Register(t Task) error {
	if t.Interval <= 0 || t.FastInterval < 0 {
		return fmt.Errorf("register %q: %w", t.Name, ErrInvalidInterval)
	}
	if t.Run == nil {
		return fmt.Errorf("register %q: nil run func", t.Name)
	}
	if _, dup := s.tasks[t.Name]; dup {
		return fmt.Errorf("register %q: %w", t.Name, ErrDuplicateTask)
	}
	s.tasks[t.Name] = &entry{task: t}
	return nil
}

// Start arms a task. Starting a running task is a no-op, so there is never
// more than one timer per task.
func (s *Scheduler) Start(name string) error {
	e, ok := s.tasks[name]
	if !ok {
		return fmt.Errorf("start %q: %w", name, ErrUnknownTask)
	}
	if e.running {
		return nil
	}
	e.gen++
	e.running = true
	e.stop = make(chan struct{})

	interval := e.task.interval(s.fast)
	// The ticker is armed before the goroutine exists so no tick is lost
	// between Start returning and the loop reaching its select.
	tk := s.clk.NewTicker(interval)
	s.wg.Add(1)
	go s.loop(e, e.gen, tk, e.stop)

	slog.Debug("task started", "task", name, "interval", interval)
	return nil
}

// Stop disarms a task. A tick already waiting on the lock will observe the
// new generation and skip.
func (s *Scheduler) Stop(name string) {
	e, ok := s.tasks[name]
	if !ok || !e.running {
		return
	}
	e.running = false
	e.gen++
	close(e.stop)
	slog.Debug("task stopped", "task", name)
}

// StopAll disarms every task.
func (s *Scheduler) StopAll() {
	for name := range s.tasks {
		s.Stop(name)
	}
}

// Running reports whether a task is armed.
func (s *Scheduler) Running(name string) bool {
	e, ok := s.tasks[name]
	return ok && e.running
}

// LastRun returns when the task last fired, zero if never.
func (s *Scheduler) LastRun(name string) time.Time {
	e, ok := s.tasks[name]
	if !ok {
		return time.Time{}
	}
	return e.lastRun
}

// Fast reports whether fast-tick intervals are in effect.
func (s *Scheduler) Fast() bool {
	return s.fast
}

// SetFast switches every task between normal and fast intervals. Running
// tasks are restarted; their phase resets but nothing already applied is
// undone.
func (s *Scheduler) SetFast(fast bool) {
	if s.fast == fast {
		return
	}
	s.fast = fast
	for name, e := range s.tasks {
		if !e.running {
			continue
		}
		s.Stop(name)
		_ = s.Start(name)
	}
	slog.Info("tick mode changed", "fast", fast)
}

// Fire runs one tick of a task synchronously, whether or not it is armed.
func (s *Scheduler) Fire(name string) error {
	e, ok := s.tasks[name]
	if !ok {
		return fmt.Errorf("fire %q: %w", name, ErrUnknownTask)
	}
	now := s.clk.Now()
	e.lastRun = now
	e.task.Run(now)
	return nil
}

// Wait blocks until every tick goroutine has exited. Call it after StopAll
// and without holding the lock.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(e *entry, gen uint64, tk clock.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()
	defer tk.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-tk.C():
			s.lock.Lock()
			if e.gen == gen && e.running {
				e.lastRun = now
				e.task.Run(now)
			}
			s.lock.Unlock()
		}
	}
}
