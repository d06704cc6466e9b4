package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/mamadbah2/bakery/internal/domain/models"
)

const digestCollection = "daily_digests"

// Repository defines the interface for digest storage.
type Repository interface {
	SaveDailyDigest(ctx context.Context, digest models.DailyDigest) error
	RecentDigests(ctx context.Context, limit int64) ([]models.DailyDigest, error)
}

// MongoDBRepository archives end-of-day digests, one document per day key.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := verifyConnection(ctx, client); err != nil {
		return nil, err
	}

	return &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: digestCollection,
	}, nil
}

// pinger is the part of *mongo.Client used to verify a fresh connection.
type pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
	Disconnect(ctx context.Context) error
}

// verifyConnection pings the deployment and releases the client's pool when
// it is unreachable.
func verifyConnection(ctx context.Context, client pinger) error {
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return nil
}

func (r *MongoDBRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collName)
}

// SaveDailyDigest replaces the digest stored for the same day, so re-running
// the nightly job after a late correction keeps one document per day.
func (r *MongoDBRepository) SaveDailyDigest(ctx context.Context, digest models.DailyDigest) error {
	_, err := r.collection().ReplaceOne(ctx,
		bson.M{"day": digest.Day},
		digest,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily digest %s: %w", digest.Day, err)
	}
	return nil
}

// RecentDigests returns up to limit digests, most recent day first.
func (r *MongoDBRepository) RecentDigests(ctx context.Context, limit int64) ([]models.DailyDigest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "day", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily digests: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.DailyDigest
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode daily digests: %w", err)
	}
	return out, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
