package mongodb

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/repositories"
)

// DrawAuditRepository implements the repositories.DrawAuditRepository interface
type DrawAuditRepository struct {
	collection *mongo.Collection
}

// NewDrawAuditRepository creates a new DrawAuditRepository
func NewDrawAuditRepository(db *mongo.Database) repositories.DrawAuditRepository {
	return &DrawAuditRepository{
		collection: db.Collection("draw_audits"),
	}
}

// EnsureIndexes creates the indexes the audit queries rely on
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("draw_audits").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "drawDate", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return eris.Wrap(err, "mongodb: create draw audit indexes")
	}
	return nil
}

// Create inserts an audit entry
func (r *DrawAuditRepository) Create(ctx context.Context, audit *models.DrawAudit) error {
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}
	res, err := r.collection.InsertOne(ctx, audit)
	if err != nil {
		return eris.Wrap(err, "mongodb: insert draw audit")
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		audit.ID = id
	}
	return nil
}

// FindRecent finds the latest audit entries, newest first
func (r *DrawAuditRepository) FindRecent(ctx context.Context, limit int) ([]*models.DrawAudit, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, bson.M{}, opts)
}

// FindByDrawDate finds every audit entry for the calendar day of date
func (r *DrawAuditRepository) FindByDrawDate(ctx context.Context, date time.Time) ([]*models.DrawAudit, error) {
	startOfDay := models.TruncateToDate(date)
	endOfDay := startOfDay.AddDate(0, 0, 1)
	filter := bson.M{
		"drawDate": bson.M{
			"$gte": startOfDay,
			"$lt":  endOfDay,
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.find(ctx, filter, opts)
}

func (r *DrawAuditRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]*models.DrawAudit, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, eris.Wrap(err, "mongodb: find draw audits")
	}
	defer cursor.Close(ctx)

	audits := []*models.DrawAudit{}
	if err := cursor.All(ctx, &audits); err != nil {
		return nil, eris.Wrap(err, "mongodb: decode draw audits")
	}
	return audits, nil
}
