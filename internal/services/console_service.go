package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/apperrors"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/cache"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/repositories"
)

// PromoBackend is everything the console needs from the promo backend.
type PromoBackend interface {
	DrawService
	ListValidForDate(ctx context.Context, session models.Session, date time.Time) ([]models.PrizeStructure, error)
	FetchByDrawID(ctx context.Context, session models.Session, drawID string) (*models.DrawWinners, error)
	ListDraws(ctx context.Context, session models.Session) ([]models.DrawSummary, error)
}

// ConsoleOptions tunes a ConsoleService.
type ConsoleOptions struct {
	SpinDelay time.Duration
	CacheTTL  time.Duration
	IdleAfter time.Duration
}

type consoleSession struct {
	controller   *ExecutionController
	lastActivity time.Time
}

// ConsoleService keeps one ExecutionController per operator and serves the
// cached read views around it.
type ConsoleService struct {
	backend PromoBackend
	audit   repositories.DrawAuditRepository
	opts    ConsoleOptions
	now     func() time.Time

	structures *cache.TTLCache[[]models.PrizeStructure]
	draws      *cache.TTLCache[[]models.DrawSummary]

	mu       sync.Mutex
	sessions map[string]*consoleSession
}

// NewConsoleService creates a ConsoleService. audit may be nil.
func NewConsoleService(backend PromoBackend, audit repositories.DrawAuditRepository, opts ConsoleOptions) *ConsoleService {
	if opts.IdleAfter <= 0 {
		opts.IdleAfter = time.Hour
	}
	return &ConsoleService{
		backend:    backend,
		audit:      audit,
		opts:       opts,
		now:        time.Now,
		structures: cache.New[[]models.PrizeStructure](opts.CacheTTL),
		draws:      cache.New[[]models.DrawSummary](opts.CacheTTL),
		sessions:   make(map[string]*consoleSession),
	}
}

// Controller returns the operator's controller, creating it on first use.
func (s *ConsoleService) Controller(session models.Session) *ExecutionController {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := session.Key()
	cs, ok := s.sessions[key]
	if !ok {
		opts := []ControllerOption{
			WithSpinDelay(s.opts.SpinDelay),
			WithInvalidator(s.InvalidateDraws),
			WithClock(s.now),
		}
		if s.audit != nil {
			opts = append(opts, WithAuditTrail(s.audit))
		}
		cs = &consoleSession{controller: NewExecutionController(session, s.backend, opts...)}
		s.sessions[key] = cs
	} else {
		cs.controller.Refresh(session)
	}
	cs.lastActivity = s.now()
	return cs.controller
}

// EndSession abandons and forgets the operator's controller. It reports
// whether one existed.
func (s *ConsoleService) EndSession(session models.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.sessions[session.Key()]
	if !ok {
		return false
	}
	cs.controller.Abandon()
	delete(s.sessions, session.Key())
	return true
}

// CleanUpInactiveSessions abandons and forgets controllers idle for longer
// than the configured limit. It returns how many were removed.
func (s *ConsoleService) CleanUpInactiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, cs := range s.sessions {
		if s.now().Sub(cs.lastActivity) > s.opts.IdleAfter {
			cs.controller.Abandon()
			delete(s.sessions, key)
			removed++
		}
	}
	if removed > 0 {
		zap.L().Info("cleaned up inactive console sessions", zap.Int("removed", removed))
	}
	return removed
}

// RunJanitor calls CleanUpInactiveSessions every interval until ctx is done.
func (s *ConsoleService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CleanUpInactiveSessions()
		}
	}
}

// PrizeStructures lists the structures valid for date, cached per operator
// and date.
func (s *ConsoleService) PrizeStructures(ctx context.Context, session models.Session, date time.Time) ([]models.PrizeStructure, error) {
	date = models.TruncateToDate(date)
	key := session.Key() + "|" + date.Format(models.DateLayout)
	return s.structures.GetOrLoad(key, func() ([]models.PrizeStructure, error) {
		list, err := s.backend.ListValidForDate(ctx, session, date)
		if err != nil {
			return nil, eris.Wrap(err, "list prize structures")
		}
		return list, nil
	})
}

// ResolvePrizeStructure finds structure id among those valid for date.
func (s *ConsoleService) ResolvePrizeStructure(ctx context.Context, session models.Session, date time.Time, id string) (*models.PrizeStructure, error) {
	list, err := s.PrizeStructures(ctx, session, date)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			ps := list[i]
			return &ps, nil
		}
	}
	return nil, apperrors.NewValidationError("prize_structure_id",
		"prize structure "+id+" is not valid for "+date.Format(models.DateLayout))
}

// Draws lists existing draws, newest first. Cached per operator until the
// next successful execution or rerun by anyone.
func (s *ConsoleService) Draws(ctx context.Context, session models.Session) ([]models.DrawSummary, error) {
	return s.draws.GetOrLoad(session.Key(), func() ([]models.DrawSummary, error) {
		list, err := s.backend.ListDraws(ctx, session)
		if err != nil {
			return nil, eris.Wrap(err, "list draws")
		}
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Date.After(list[j].Date)
		})
		return list, nil
	})
}

// InvalidateDraws drops every operator's cached draw list.
func (s *ConsoleService) InvalidateDraws() {
	s.draws.Purge()
}

// Winners fetches a draw's winners and reconciles them against the prize
// structure the backend says the draw ran with.
func (s *ConsoleService) Winners(ctx context.Context, session models.Session, drawID string) (ReconciledView, error) {
	dw, err := s.backend.FetchByDrawID(ctx, session, drawID)
	if err != nil {
		return ReconciledView{}, eris.Wrapf(err, "fetch winners for draw %s", drawID)
	}
	view := ReconcileWinners(models.DrawResult{DrawID: drawID, Winners: dw.Winners}, dw.PrizeStructure)
	if len(view.Unmatched) > 0 {
		zap.L().Warn("winners reference tiers missing from the prize structure",
			zap.String("draw_id", drawID), zap.Int("unmatched", len(view.Unmatched)))
	}
	return view, nil
}

// Audit returns the most recent audit entries.
func (s *ConsoleService) Audit(ctx context.Context, limit int) ([]*models.DrawAudit, error) {
	if s.audit == nil {
		return []*models.DrawAudit{}, nil
	}
	return s.audit.FindRecent(ctx, limit)
}

// AuditForDate returns every audit entry for the calendar day of date.
func (s *ConsoleService) AuditForDate(ctx context.Context, date time.Time) ([]*models.DrawAudit, error) {
	if s.audit == nil {
		return []*models.DrawAudit{}, nil
	}
	return s.audit.FindByDrawDate(ctx, models.TruncateToDate(date))
}
