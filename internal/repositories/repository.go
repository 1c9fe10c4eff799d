package repositories

import (
	"context"
	"time"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
)

// DrawAuditRepository defines the interface for the console audit trail
type DrawAuditRepository interface {
	Create(ctx context.Context, audit *models.DrawAudit) error
	// FindRecent returns the newest entries first
	FindRecent(ctx context.Context, limit int) ([]*models.DrawAudit, error)
	FindByDrawDate(ctx context.Context, date time.Time) ([]*models.DrawAudit, error)
}
