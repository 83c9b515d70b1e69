package convo

import (
	"context"
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"booksms/common/redact"
)

const (
	// DefaultFastTTL is how long a conversation stays in the in-memory fast
	// path. Shortcuts (more/follow-up/reference) only make sense while the
	// exchange is still warm.
	DefaultFastTTL = 5 * time.Minute

	// DefaultDurableTTL is how long the durable tier keeps a conversation.
	// A sender coming back within half an hour resumes where they left off
	// even across a process restart.
	DefaultDurableTTL = 30 * time.Minute
)

// Durable is the persistence hook for the slower conversation tier. The
// production implementation lives in the store package (SQLite); tests
// inject fakes or pass nil for memory-only operation.
type Durable interface {
	LoadConversation(ctx context.Context, sender string) (*Context, error)
	SaveConversation(ctx context.Context, c *Context) error
	DeleteConversation(ctx context.Context, sender string) error
}

// Store holds per-sender conversation state in two tiers: a go-cache fast
// path with a short TTL, and an optional durable tier with a longer one.
// Expiry is checked centrally inside Get — callers never see a stale entry
// even before a sweep runs.
//
// Different senders are fully independent; for a single sender the mutex
// serializes read-modify-write so a burst of messages cannot drop fields
// (last-writer-wins on whole fields is fine, losing fields is not).
type Store struct {
	mu         sync.Mutex
	fast       *gocache.Cache
	durable    Durable
	fastTTL    time.Duration
	durableTTL time.Duration
	now        func() time.Time // injectable for expiry tests
}

// StoreConfig configures a Store. Zero values take the documented defaults.
type StoreConfig struct {
	FastTTL    time.Duration
	DurableTTL time.Duration
	Durable    Durable
}

// NewStore creates a conversation store.
func NewStore(cfg StoreConfig) *Store {
	if cfg.FastTTL <= 0 {
		cfg.FastTTL = DefaultFastTTL
	}
	if cfg.DurableTTL <= 0 {
		cfg.DurableTTL = DefaultDurableTTL
	}
	return &Store{
		// The janitor interval doubles the TTL; expiry correctness does not
		// depend on it because go-cache checks item deadlines on Get.
		fast:       gocache.New(cfg.FastTTL, 2*cfg.FastTTL),
		durable:    cfg.Durable,
		fastTTL:    cfg.FastTTL,
		durableTTL: cfg.DurableTTL,
		now:        time.Now,
	}
}

// Get returns a copy of the sender's conversation, or nil when none exists
// or every tier has expired. An expired durable row is deleted on read.
func (s *Store) Get(ctx context.Context, sender string) *Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx, sender)
}

func (s *Store) getLocked(ctx context.Context, sender string) *Context {
	if v, ok := s.fast.Get(sender); ok {
		return v.(*Context).clone()
	}

	if s.durable == nil {
		return nil
	}
	c, err := s.durable.LoadConversation(ctx, sender)
	if err != nil {
		slog.Warn("convo: durable load failed", "sender", redact.Phone(sender), "err", err)
		return nil
	}
	if c == nil {
		return nil
	}
	if s.now().Sub(c.LastInteraction) > s.durableTTL {
		// Read past expiry: treat as absent and clean up the row.
		if err := s.durable.DeleteConversation(ctx, sender); err != nil {
			slog.Warn("convo: expired-row delete failed", "sender", redact.Phone(sender), "err", err)
		}
		return nil
	}
	// Rehydrate the fast path so follow-up shortcuts work again.
	s.fast.Set(sender, c.clone(), gocache.DefaultExpiration)
	return c.clone()
}

// Apply merges u into the sender's conversation, creating the entry when
// absent, and refreshes LastInteraction. The merged state is written
// through to the durable tier best-effort.
func (s *Store) Apply(ctx context.Context, sender string, u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.getLocked(ctx, sender)
	if c == nil {
		c = &Context{Sender: sender, State: StateIdle}
	}
	u.apply(c, s.now())

	s.fast.Set(sender, c, gocache.DefaultExpiration)

	if s.durable != nil {
		if err := s.durable.SaveConversation(ctx, c.clone()); err != nil {
			slog.Warn("convo: durable save failed", "sender", redact.Phone(sender), "err", err)
		}
	}
}

// Clear discards the sender's conversation from both tiers.
func (s *Store) Clear(ctx context.Context, sender string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fast.Delete(sender)
	if s.durable != nil {
		if err := s.durable.DeleteConversation(ctx, sender); err != nil {
			slog.Warn("convo: durable delete failed", "sender", redact.Phone(sender), "err", err)
		}
	}
}

// DurableTTL exposes the durable tier's expiry window so the app's
// background sweep can prune rows on the same clock Get uses.
func (s *Store) DurableTTL() time.Duration {
	return s.durableTTL
}
