// Package game owns the authoritative player state. Service serializes
// every writer (the mutation API, the crime orchestrator and the clock
// scheduler's ticks) behind one mutex, persists after every change and
// publishes snapshots to observers.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/talgya/astral-district/internal/catalog"
	"github.com/talgya/astral-district/internal/clock"
	"github.com/talgya/astral-district/internal/district"
	"github.com/talgya/astral-district/internal/engine"
	"github.com/talgya/astral-district/internal/entropy"
	"github.com/talgya/astral-district/internal/player"
)

// ErrNoPlayer is returned when an operation needs an active player and
// there is none.
var ErrNoPlayer = errors.New("no active player")

const (
	journalSize   = 100
	subBuffer     = 16
	metaFastTicks = "fast_ticks"
)

// Store is the persistence the service writes through to.
type Store interface {
	Load(ctx context.Context) (player.State, bool)
	Save(ctx context.Context, st player.State) error
	Clear(ctx context.Context) error
	SaveMeta(ctx context.Context, key, value string) error
	GetMeta(ctx context.Context, key string) (string, bool, error)
}

// Options configures a Service. Zero values pick production defaults,
// except the delays: a zero delay means no pause.
type Options struct {
	Catalog  catalog.RewardCatalog
	Store    Store // nil disables persistence
	District *district.Map
	Clock    clock.Clock
	Source   entropy.Source

	FastTicks     bool
	SuspenseDelay time.Duration
	RiskDelay     time.Duration
}

// Event is a notable change, kept in a bounded journal.
type Event struct {
	ID          string    `json:"id"`
	Time        time.Time `json:"time"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
}

// Update is published to subscribers after every change. Active is false
// once the player has been reset.
type Update struct {
	Active bool         `json:"active"`
	State  player.State `json:"state"`
	Event  *Event       `json:"event,omitempty"`
}

// Service is the single owner of the player state.
type Service struct {
	mu sync.Mutex

	st    *player.State
	cat   catalog.RewardCatalog
	store Store
	dist  *district.Map
	clk   clock.Clock
	src   entropy.Source
	sched *engine.Scheduler

	suspenseDelay time.Duration
	riskDelay     time.Duration

	busy           bool
	session        uint64 // bumped whenever the active character changes
	lastHealthTick time.Time

	subs    map[int]chan Update
	nextSub int
	journal []Event
}

// NewService wires a service. No player is active until Create or Load.
func NewService(opts Options) (*Service, error) {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.District == nil {
		opts.District = district.Generate(1)
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Source == nil {
		opts.Source = entropy.Crypto{}
	}

	s := &Service{
		cat:           opts.Catalog,
		store:         opts.Store,
		dist:          opts.District,
		clk:           opts.Clock,
		src:           opts.Source,
		suspenseDelay: opts.SuspenseDelay,
		riskDelay:     opts.RiskDelay,
		subs:          make(map[int]chan Update),
	}
	s.sched = engine.NewScheduler(&s.mu, s.clk)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.registerTasks(); err != nil {
		return nil, fmt.Errorf("register tasks: %w", err)
	}
	s.sched.SetFast(opts.FastTicks)
	return s, nil
}

// Create starts a new level-1 character. It fails if a player already
// exists or the name is empty.
func (s *Service) Create(name string) (player.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st != nil || name == "" {
		return player.State{}, false
	}
	st := player.New(name, s.clk.Now())
	s.st = &st
	s.session++
	s.commitLocked(false, "create", fmt.Sprintf("%s arrives in the district", name))
	slog.Info("player created", "player", name, "id", st.ID)
	return s.st.Clone(), true
}

// Load rehydrates the saved player, if any, and restores the persisted
// fast-tick flag.
func (s *Service) Load(ctx context.Context) bool {
	if s.store == nil {
		return false
	}
	st, ok := s.store.Load(ctx)

	fast, fastSet := false, false
	if v, found, err := s.store.GetMeta(ctx, metaFastTicks); err != nil {
		slog.Warn("read fast tick flag failed", "error", err)
	} else if found {
		fast, _ = strconv.ParseBool(v)
		fastSet = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if fastSet {
		s.sched.SetFast(fast)
	}
	if !ok {
		return false
	}
	s.st = &st
	s.session++
	s.syncTasksLocked()
	s.publishLocked(nil)
	return true
}

// Snapshot returns a copy of the current state.
func (s *Service) Snapshot() (player.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st == nil {
		return player.State{}, false
	}
	return s.st.Clone(), true
}

// Busy reports whether an orchestration is in flight.
func (s *Service) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// LastHealthTick is when health regen last ran, for countdown display.
func (s *Service) LastHealthTick() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHealthTick
}

// Subscribe registers an observer. Updates are dropped for a subscriber
// whose buffer is full.
func (s *Service) Subscribe() (int, <-chan Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Update, subBuffer)
	s.subs[id] = ch
	return id, ch
}

// Unsubscribe removes an observer and closes its channel.
func (s *Service) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// RecentEvents returns up to limit journal entries, newest last.
func (s *Service) RecentEvents(limit int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.journal) {
		limit = len(s.journal)
	}
	out := make([]Event, limit)
	copy(out, s.journal[len(s.journal)-limit:])
	return out
}

// Close stops every task and waits for tick goroutines to exit.
func (s *Service) Close() {
	s.mu.Lock()
	s.sched.StopAll()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()
	s.sched.Wait()
}

// commitLocked re-applies invariants, persists, re-arms tasks and
// publishes. stamp marks a player-initiated change.
func (s *Service) commitLocked(stamp bool, category, description string) {
	if s.st == nil {
		return
	}
	*s.st = player.Normalize(*s.st)
	if stamp {
		s.st.LastAction = s.clk.Now()
	}
	s.saveLocked()
	s.syncTasksLocked()

	var ev *Event
	if description != "" {
		ev = s.recordLocked(category, description)
	}
	s.publishLocked(ev)
}

func (s *Service) saveLocked() {
	if s.store == nil || s.st == nil {
		return
	}
	if err := s.store.Save(context.Background(), *s.st); err != nil {
		slog.Error("save failed", "error", err)
	}
}

func (s *Service) recordLocked(category, description string) *Event {
	now := s.clk.Now()
	ev := Event{
		ID:          ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Time:        now,
		Category:    category,
		Description: description,
	}
	s.journal = append(s.journal, ev)
	if len(s.journal) > journalSize {
		s.journal = append(s.journal[:0], s.journal[len(s.journal)-journalSize:]...)
	}
	slog.Debug("event", "category", category, "description", description)
	return &ev
}

func (s *Service) publishLocked(ev *Event) {
	u := Update{Event: ev}
	if s.st != nil {
		u.Active = true
		u.State = s.st.Clone()
	}
	for id, ch := range s.subs {
		select {
		case ch <- u:
		default:
			slog.Debug("subscriber lagging, update dropped", "subscriber", id)
		}
	}
}

// activeLocked logs and reports false when there is no player.
func (s *Service) activeLocked(op string) bool {
	if s.st == nil {
		slog.Error("mutation without active player", "op", op)
		return false
	}
	return true
}
