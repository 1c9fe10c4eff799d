package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryDrawAuditRepository keeps the audit trail in process memory. Used when
// no MongoDB URI is configured.
type MemoryDrawAuditRepository struct {
	mu      sync.RWMutex
	entries []*models.DrawAudit
	limit   int
}

// NewMemoryDrawAuditRepository creates a repository holding at most limit
// entries; older entries are dropped first. A limit <= 0 keeps everything.
func NewMemoryDrawAuditRepository(limit int) *MemoryDrawAuditRepository {
	return &MemoryDrawAuditRepository{limit: limit}
}

// Create stores a copy of audit, assigning an ID and timestamp when missing
func (r *MemoryDrawAuditRepository) Create(_ context.Context, audit *models.DrawAudit) error {
	if audit.ID.IsZero() {
		audit.ID = primitive.NewObjectID()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}
	stored := *audit

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, &stored)
	if r.limit > 0 && len(r.entries) > r.limit {
		r.entries = r.entries[len(r.entries)-r.limit:]
	}
	return nil
}

// FindRecent returns up to limit entries, newest first
func (r *MemoryDrawAuditRepository) FindRecent(_ context.Context, limit int) ([]*models.DrawAudit, error) {
	r.mu.RLock()
	out := r.snapshot(func(*models.DrawAudit) bool { return true })
	r.mu.RUnlock()

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FindByDrawDate returns every entry for the calendar date, newest first
func (r *MemoryDrawAuditRepository) FindByDrawDate(_ context.Context, date time.Time) ([]*models.DrawAudit, error) {
	day := models.TruncateToDate(date)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot(func(a *models.DrawAudit) bool {
		return models.TruncateToDate(a.DrawDate).Equal(day)
	}), nil
}

func (r *MemoryDrawAuditRepository) snapshot(keep func(*models.DrawAudit) bool) []*models.DrawAudit {
	out := make([]*models.DrawAudit, 0, len(r.entries))
	for _, a := range r.entries {
		if keep(a) {
			c := *a
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
