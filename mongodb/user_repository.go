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

// UserRepositoryMongo implements domain.UserRepository using MongoDB.
type UserRepositoryMongo struct {
	collection *mongo.Collection
}

// NewUserRepositoryMongo creates a UserRepositoryMongo and ensures the
// collection's indexes. Email uniqueness is exact-match: no collation, so
// lookups and the unique index are case-sensitive.
func NewUserRepositoryMongo(ctx context.Context, db *mongo.Database) (*UserRepositoryMongo, error) {
	repo := &UserRepositoryMongo{collection: db.Collection(UsersCollection)}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "verification_token", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "reset_token", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	if _, err := repo.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("Issue creating indexes for users collection (might already exist)")
	}

	return repo, nil
}

func (r *UserRepositoryMongo) CreateUser(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = domain.NewID()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apierrors.ErrEmailTaken
		}
		log.Error().Err(err).Msg("Error storing user in MongoDB")
		return err
	}
	return nil
}

func (r *UserRepositoryMongo) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepositoryMongo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepositoryMongo) GetUserByVerificationToken(ctx context.Context, token string, now time.Time) (*domain.User, error) {
	if token == "" {
		return nil, apierrors.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{
		"verification_token":        token,
		"verification_token_expiry": bson.M{"$gt": now},
	})
}

func (r *UserRepositoryMongo) GetUserByResetToken(ctx context.Context, token string, now time.Time) (*domain.User, error) {
	if token == "" {
		return nil, apierrors.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{
		"reset_token":        token,
		"reset_token_expiry": bson.M{"$gt": now},
	})
}

func (r *UserRepositoryMongo) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var user domain.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apierrors.ErrUserNotFound
		}
		log.Error().Err(err).Msg("Error getting user from MongoDB")
		return nil, err
	}
	return &user, nil
}

// UpdateUser replaces the stored user document. Cleared token fields are
// unset rather than stored empty so the sparse token indexes stay small.
func (r *UserRepositoryMongo) UpdateUser(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()

	set := bson.M{
		"name":          user.Name,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"is_verified":   user.IsVerified,
		"updated_at":    user.UpdatedAt,
	}
	unset := bson.M{}

	if user.VerificationToken != "" {
		set["verification_token"] = user.VerificationToken
		set["verification_token_expiry"] = user.VerificationTokenExpiry
	} else {
		unset["verification_token"] = ""
		unset["verification_token_expiry"] = ""
	}
	if user.ResetToken != "" {
		set["reset_token"] = user.ResetToken
		set["reset_token_expiry"] = user.ResetTokenExpiry
	} else {
		unset["reset_token"] = ""
		unset["reset_token_expiry"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": user.ID}, update)
	if err != nil {
		log.Error().Err(err).Str("userID", user.ID).Msg("Error updating user in MongoDB")
		return err
	}
	if result.MatchedCount == 0 {
		return apierrors.ErrUserNotFound
	}
	return nil
}

var _ domain.UserRepository = (*UserRepositoryMongo)(nil)
