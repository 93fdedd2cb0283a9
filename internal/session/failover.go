package session

import (
	"context"
	"sync/atomic"
	"time"

	"paras/internal/domain"
	"paras/internal/models"

	"github.com/rs/zerolog"
)

// FailoverStore serves from a primary store and falls back when it errors.
// After a failure the primary is probed again at most once a minute.
type FailoverStore struct {
	primary   domain.SessionStore
	fallback  domain.SessionStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverStore(primary, fallback domain.SessionStore, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

const recoveryInterval = time.Minute

func (s *FailoverStore) markDown(err error) {
	if !s.isDown.Swap(true) {
		s.logger.Error().Err(err).Msg("primary session store failed, falling back")
	}
	s.lastCheck.Store(time.Now().UnixNano())
}

func (s *FailoverStore) shouldProbe() bool {
	return time.Since(time.Unix(0, s.lastCheck.Load())) > recoveryInterval
}

func (s *FailoverStore) markUp() {
	if s.isDown.Swap(false) {
		s.logger.Info().Msg("primary session store recovered")
	}
}

func (s *FailoverStore) Get(ctx context.Context, id string) (*models.SessionRecord, error) {
	if !s.isDown.Load() || s.shouldProbe() {
		record, err := s.primary.Get(ctx, id)
		if err == nil {
			s.markUp()
			return record, nil
		}
		s.markDown(err)
	}
	return s.fallback.Get(ctx, id)
}

func (s *FailoverStore) Put(ctx context.Context, record *models.SessionRecord) error {
	if !s.isDown.Load() || s.shouldProbe() {
		err := s.primary.Put(ctx, record)
		if err == nil {
			s.markUp()
			// Mirror to the fallback so a later failover still sees it.
			_ = s.fallback.Put(ctx, record)
			return nil
		}
		s.markDown(err)
	}
	return s.fallback.Put(ctx, record)
}

func (s *FailoverStore) Delete(ctx context.Context, id string) error {
	var primaryErr error
	if !s.isDown.Load() || s.shouldProbe() {
		primaryErr = s.primary.Delete(ctx, id)
		if primaryErr == nil {
			s.markUp()
		} else {
			s.markDown(primaryErr)
		}
	}
	// Always clear the fallback copy; a session logout must not survive in
	// either store.
	return s.fallback.Delete(ctx, id)
}
