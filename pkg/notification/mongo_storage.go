package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoCollection is the default collection name for notification records.
const MongoCollection = "notifications"

// mutateRetryLimit bounds the optimistic-concurrency loop in Mutate.
// Contention on a single notification is rare (claims serialize workers),
// so a handful of attempts is plenty.
const mutateRetryLimit = 5

// MongoStorage implements Storage on top of a MongoDB collection.
// Claims are conditional findAndModify operations, so concurrent workers
// racing over the same due set cannot double-claim a record.
type MongoStorage struct {
	coll *mongo.Collection
}

// NewMongoStorage creates a Mongo-backed notification storage.
func NewMongoStorage(db *mongo.Database) (*MongoStorage, error) {
	if db == nil {
		return nil, errors.New("mongo database is required")
	}
	return &MongoStorage{coll: db.Collection(MongoCollection)}, nil
}

// EnsureIndexes creates the indexes the query operations rely on. Safe to
// call on every startup; index creation is idempotent.
func (s *MongoStorage) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduled_for", Value: 1}}},
		{Keys: bson.D{{Key: "archived", Value: 1}, {Key: "metadata.expires_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create notification indexes: %w", err)
	}
	return nil
}

func (s *MongoStorage) Create(ctx context.Context, n *Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}

	cp := n.Clone()
	cp.Normalize()

	if _, err := s.coll.InsertOne(ctx, cp); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	return nil
}

func (s *MongoStorage) Get(ctx context.Context, id string) (*Notification, error) {
	var n Notification
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notification: %w", err)
	}
	return &n, nil
}

func (s *MongoStorage) Mutate(ctx context.Context, id string, fn func(*Notification) error) (*Notification, error) {
	// Optimistic concurrency: replace only if updated_at is unchanged since
	// the read, retrying on conflict. Mutations stay atomic without holding
	// a database transaction across the callback.
	for range mutateRetryLimit {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		observedAt := current.UpdatedAt
		if err := fn(current); err != nil {
			return nil, err
		}

		current.Normalize()
		current.UpdatedAt = time.Now()

		res, err := s.coll.ReplaceOne(ctx,
			bson.M{"_id": id, "updated_at": observedAt},
			current,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update notification: %w", err)
		}
		if res.ModifiedCount == 1 || res.MatchedCount == 1 {
			return current, nil
		}
		// Lost the race; re-read and retry.
	}

	return nil, fmt.Errorf("failed to update notification %s: too many concurrent modifications", id)
}

func (s *MongoStorage) Claim(ctx context.Context, id string, workerID string, lease time.Duration) (*Notification, error) {
	now := time.Now()
	until := now.Add(lease)

	filter := bson.M{
		"_id":      id,
		"status":   StatusPending,
		"archived": false,
		"$or": bson.A{
			bson.M{"claimed_until": bson.M{"$exists": false}},
			bson.M{"claimed_until": nil},
			bson.M{"claimed_until": bson.M{"$lt": now}},
		},
	}
	update := bson.M{"$set": bson.M{
		"claimed_by":    workerID,
		"claimed_until": until,
		"updated_at":    now,
	}}

	var n Notification
	err := s.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Distinguish a missing record from a lost claim race.
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrClaimConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim notification: %w", err)
	}

	return &n, nil
}

func (s *MongoStorage) Release(ctx context.Context, id string, workerID string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "claimed_by": workerID},
		bson.M{
			"$unset": bson.M{"claimed_by": "", "claimed_until": ""},
			"$set":   bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to release notification claim: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return getErr
		}
		return ErrNotClaimed
	}
	return nil
}

func (s *MongoStorage) DueForDelivery(ctx context.Context, limit int) ([]*Notification, error) {
	now := time.Now()

	filter := bson.M{
		"status":   StatusPending,
		"archived": false,
		"$expr":    bson.M{"$lt": bson.A{"$retry_count", "$max_retries"}},
		"$and": bson.A{
			bson.M{"$or": bson.A{
				bson.M{"scheduled_for": bson.M{"$exists": false}},
				bson.M{"scheduled_for": nil},
				bson.M{"scheduled_for": bson.M{"$lte": now}},
			}},
			bson.M{"$or": bson.A{
				bson.M{"claimed_until": bson.M{"$exists": false}},
				bson.M{"claimed_until": nil},
				bson.M{"claimed_until": bson.M{"$lt": now}},
			}},
		},
	}

	// Priority is stored as a string, so ordering goes through a computed
	// rank field in an aggregation pipeline.
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: filter}},
		bson.D{{Key: "$addFields", Value: bson.M{
			"priority_rank": bson.M{"$switch": bson.M{
				"branches": bson.A{
					bson.M{"case": bson.M{"$eq": bson.A{"$priority", PriorityUrgent}}, "then": 4},
					bson.M{"case": bson.M{"$eq": bson.A{"$priority", PriorityHigh}}, "then": 3},
					bson.M{"case": bson.M{"$eq": bson.A{"$priority", PriorityNormal}}, "then": 2},
					bson.M{"case": bson.M{"$eq": bson.A{"$priority", PriorityLow}}, "then": 1},
				},
				"default": 0,
			}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "priority_rank", Value: -1},
			{Key: "created_at", Value: 1},
		}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to query due notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var due []*Notification
	if err := cursor.All(ctx, &due); err != nil {
		return nil, fmt.Errorf("failed to decode due notifications: %w", err)
	}

	return due, nil
}

func (s *MongoStorage) ListForUser(ctx context.Context, userID string, opts ListOptions) ([]*Notification, error) {
	filter := bson.M{"user_id": userID}
	if !opts.IncludeArchived {
		filter["archived"] = false
	}
	if opts.UnreadOnly {
		filter["is_read"] = false
	}
	if opts.Priority != "" {
		filter["priority"] = opts.Priority
	}
	if len(opts.Types) > 0 {
		filter["event_type"] = bson.M{"$in": opts.Types}
	}

	offset, limit := opts.offsetLimit()
	cursor, err := s.coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := []*Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}

	return notifications, nil
}

func (s *MongoStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{
		"user_id":  userID,
		"is_read":  false,
		"archived": false,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return int(count), nil
}

func (s *MongoStorage) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{
		"archived":            true,
		"metadata.expires_at": bson.M{"$ne": nil, "$lte": time.Now()},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired notifications: %w", err)
	}
	return int(res.DeletedCount), nil
}
