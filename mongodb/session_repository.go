package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/kalpintel/authd/domain"
	apierrors "github.com/kalpintel/authd/errors"
)

// SessionRepositoryMongo implements domain.SessionRepository using MongoDB.
type SessionRepositoryMongo struct {
	collection *mongo.Collection
}

// NewSessionRepositoryMongo creates a SessionRepositoryMongo and ensures the
// collection's indexes. The compound unique index on
// (user_id, device, browser, os) is what makes the upsert protocol safe: a
// racing insert for the same device identity fails with a duplicate-key
// error instead of producing a second row.
func NewSessionRepositoryMongo(ctx context.Context, db *mongo.Database) (*SessionRepositoryMongo, error) {
	repo := &SessionRepositoryMongo{collection: db.Collection(SessionsCollection)}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "jti", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "device", Value: 1},
				{Key: "browser", Value: 1},
				{Key: "os", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	}

	if _, err := repo.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("Issue creating indexes for sessions collection (might already exist)")
	}

	return repo, nil
}

// UpsertByDevice atomically creates or refreshes the session for the device
// identity carried by sess. Two concurrent logins from the same identity can
// both take the insert path of the upsert; the loser hits the compound unique
// index and is retried as a plain update, which now matches the row the
// winner created. Either way exactly one row remains and the last write owns
// the jti.
func (r *SessionRepositoryMongo) UpsertByDevice(ctx context.Context, sess *domain.Session) (*domain.Session, error) {
	filter := bson.M{
		"user_id": sess.UserID,
		"device":  sess.Device,
		"browser": sess.Browser,
		"os":      sess.OS,
	}
	update := bson.M{
		"$set": bson.M{
			"jti":         sess.JTI,
			"ip":          sess.IP,
			"last_active": sess.LastActive,
		},
		"$setOnInsert": bson.M{
			"_id":        domain.NewID(),
			"created_at": time.Now().UTC(),
		},
	}

	var stored domain.Session
	err := r.collection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&stored)
	if err == nil {
		return &stored, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		log.Error().Err(err).Str("userID", sess.UserID).Msg("Error upserting session in MongoDB")
		return nil, err
	}

	// A concurrent insert for the same device identity won the race. The row
	// exists now, so the same update without upsert must succeed.
	err = r.collection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&stored)
	if err != nil {
		log.Error().Err(err).Str("userID", sess.UserID).Msg("Error retrying session update after duplicate key")
		return nil, err
	}
	return &stored, nil
}

func (r *SessionRepositoryMongo) GetByJTI(ctx context.Context, jti, userID string) (*domain.Session, error) {
	var sess domain.Session
	err := r.collection.FindOne(ctx, bson.M{"jti": jti, "user_id": userID}).Decode(&sess)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apierrors.ErrSessionNotFound
		}
		log.Error().Err(err).Msg("Error getting session by jti from MongoDB")
		return nil, err
	}
	return &sess, nil
}

func (r *SessionRepositoryMongo) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"last_active": at}},
	)
	if err != nil {
		log.Error().Err(err).Str("sessionID", id).Msg("Error touching session in MongoDB")
		return err
	}
	if result.MatchedCount == 0 {
		return apierrors.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepositoryMongo) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	cursor, err := r.collection.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "last_active", Value: -1}}),
	)
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("Error listing sessions from MongoDB")
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*domain.Session
	if err = cursor.All(ctx, &sessions); err != nil {
		log.Error().Err(err).Msg("Error decoding listed sessions from MongoDB")
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepositoryMongo) Delete(ctx context.Context, id, userID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		log.Error().Err(err).Str("sessionID", id).Msg("Error deleting session from MongoDB")
		return err
	}
	if result.DeletedCount == 0 {
		return apierrors.ErrSessionNotFound
	}
	return nil
}

// DeleteByJTI removes the caller's session. Zero deletions is not an error:
// a double logout is a no-op.
func (r *SessionRepositoryMongo) DeleteByJTI(ctx context.Context, jti, userID string) (bool, error) {
	result, err := r.collection.DeleteOne(ctx, bson.M{"jti": jti, "user_id": userID})
	if err != nil {
		log.Error().Err(err).Msg("Error deleting session by jti from MongoDB")
		return false, err
	}
	return result.DeletedCount > 0, nil
}

func (r *SessionRepositoryMongo) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("Error deleting sessions from MongoDB")
		return 0, err
	}
	return result.DeletedCount, nil
}

var _ domain.SessionRepository = (*SessionRepositoryMongo)(nil)
