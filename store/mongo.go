package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quest-entry-service/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps entries as documents in a single collection, matching
// deployments that already hold the waitlist in MongoDB.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	now        func() time.Time
}

// OpenMongo connects, pings and ensures the unique indexes exist.
func OpenMongo(ctx context.Context, uri, dbName, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s := &MongoStore{
		client:     client,
		collection: client.Database(dbName).Collection(collection),
		now:        time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "walletAddress", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_wallet_address")},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
		{Keys: bson.D{{Key: "easterEggSolved", Value: 1}}, Options: options.Index().SetName("easter_egg_solved")},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) CreateEntry(ctx context.Context, in NewEntry) (*models.Entry, error) {
	in = in.Normalize()
	entry := models.Entry{
		ID:                uuid.NewString(),
		Email:             in.Email,
		WalletAddress:     in.WalletAddress,
		EasterEggUnlocked: in.EasterEggUnlocked,
		EasterEggSolved:   in.EasterEggSolved,
		CreatedAt:         s.now().UTC().Truncate(time.Millisecond),
	}

	if _, err := s.collection.InsertOne(ctx, entry); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, s.conflictFor(ctx, in)
		}
		return nil, fmt.Errorf("failed to insert entry: %w", err)
	}
	return &entry, nil
}

func (s *MongoStore) conflictFor(ctx context.Context, in NewEntry) error {
	for _, probe := range []struct {
		field Field
		key   string
		value string
	}{
		{FieldWallet, "walletAddress", in.WalletAddress},
		{FieldEmail, "email", in.Email},
	} {
		n, err := s.collection.CountDocuments(ctx, bson.M{probe.key: probe.value}, options.Count().SetLimit(1))
		if err != nil {
			return fmt.Errorf("failed to resolve insert conflict: %w", err)
		}
		if n > 0 {
			return &ConflictError{Field: probe.field}
		}
	}
	return fmt.Errorf("duplicate key for wallet %s but no conflicting entry exists", in.WalletAddress)
}

func (s *MongoStore) GetEntryByWallet(ctx context.Context, walletAddress string) (*models.Entry, error) {
	var entry models.Entry
	err := s.collection.FindOne(ctx, bson.M{"walletAddress": walletAddress}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entry: %w", err)
	}
	return &entry, nil
}

func (s *MongoStore) MarkSolved(ctx context.Context, walletAddress string) (SolveResult, error) {
	res, err := s.collection.UpdateOne(ctx,
		bson.M{"walletAddress": walletAddress},
		bson.M{"$set": bson.M{"easterEggSolved": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update entry: %w", err)
	}
	if res.MatchedCount == 0 {
		return 0, ErrNotFound
	}
	if res.ModifiedCount == 0 {
		return SolveNoChange, nil
	}
	return SolveUpdated, nil
}

func (s *MongoStore) SolvedRank(ctx context.Context, _ string) (Rank, error) {
	n, err := s.collection.CountDocuments(ctx, bson.M{"easterEggSolved": true})
	if err != nil {
		return Rank{}, fmt.Errorf("failed to count solved entries: %w", err)
	}
	return RankFor(n), nil
}

func (s *MongoStore) Stats(ctx context.Context) (Stats, error) {
	cur, err := s.collection.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "solved", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{"$easterEggSolved", 1, 0}}}}}},
			{Key: "unlocked", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{"$easterEggUnlocked", 1, 0}}}}}},
		}}},
	})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute stats: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Total    int64 `bson:"total"`
		Solved   int64 `bson:"solved"`
		Unlocked int64 `bson:"unlocked"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return Stats{}, fmt.Errorf("failed to decode stats: %w", err)
	}
	if len(rows) == 0 {
		return Stats{}, nil
	}
	return Stats{Total: rows[0].Total, Solved: rows[0].Solved, Unlocked: rows[0].Unlocked}, nil
}

func (s *MongoStore) EachEntry(ctx context.Context, fn func(models.Entry) error) error {
	cur, err := s.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var entry models.Entry
		if err := cur.Decode(&entry); err != nil {
			return fmt.Errorf("failed to decode entry: %w", err)
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return cur.Err()
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
