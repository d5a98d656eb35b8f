package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// CachedStore fronts a durable store with a cache. Writes go to the
// durable store and invalidate the cache entry.
type CachedStore struct {
	primary SessionStore
	cache   SessionStore
	log     logrus.FieldLogger
	sfg     singleflight.Group // prevents cache stampede

	// fills tracks cache fills in flight. A write during a fill marks it
	// stale so the old cart is not written back to the cache.
	mu    sync.Mutex
	fills map[string]*fill
}

type fill struct {
	stale bool
}

func NewCachedStore(primary, cache SessionStore, log logrus.FieldLogger) *CachedStore {
	return &CachedStore{
		primary: primary,
		cache:   cache,
		log:     log,
		fills:   map[string]*fill{},
	}
}

func (s *CachedStore) Load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		cart, err := s.cache.Load(ctx, sessionID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, ErrCartNotFound) {
			s.log.WithError(err).WithField("session_id", sessionID).Warn("cart cache get failed")
		}

		f := s.beginFill(sessionID)
		cart, err = s.primary.Load(ctx, sessionID)
		if err != nil {
			s.endFill(sessionID)
			return nil, err
		}

		s.fillCache(ctx, sessionID, f, cart)
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	// callers sharing a flight must not share the mapping
	return domain.NewCart(v.(*domain.Cart).Entries()...), nil
}

func (s *CachedStore) Save(ctx context.Context, sessionID string, cart *domain.Cart) error {
	if err := s.primary.Save(ctx, sessionID, cart); err != nil {
		return err
	}
	s.invalidate(sessionID)
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.primary.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.invalidate(sessionID)
	return nil
}

func (s *CachedStore) beginFill(sessionID string) *fill {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := &fill{}
	s.fills[sessionID] = f
	return f
}

func (s *CachedStore) endFill(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fills, sessionID)
}

// fillCache writes cart to the cache unless a write invalidated the
// session after the fill started. The check and the write happen under
// mu so an invalidation cannot slip between them.
func (s *CachedStore) fillCache(ctx context.Context, sessionID string, f *fill, cart *domain.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fills, sessionID)
	if f.stale {
		return
	}
	if err := s.cache.Save(ctx, sessionID, cart); err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Warn("cart cache set failed")
	}
}

func (s *CachedStore) invalidate(sessionID string) {
	s.mu.Lock()
	if f, ok := s.fills[sessionID]; ok {
		f.stale = true
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Warn("cart cache invalidate failed")
	}
}
