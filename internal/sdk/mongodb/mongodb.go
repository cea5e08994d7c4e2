// Package mongodb provides the MongoDB credential store.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nourabuild/blog-account-service/internal/sdk/models"
	"github.com/nourabuild/blog-account-service/internal/sdk/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	usersCollection = "users"
	postsCollection = "posts"
)

// Config configures the MongoDB store.
type Config struct {
	URI      string
	Database string

	// Transactions wraps the cascading account delete in a multi-document
	// transaction. Requires a replica set or sharded cluster.
	Transactions bool
}

type service struct {
	client       *mongo.Client
	users        *mongo.Collection
	posts        *mongo.Collection
	transactions bool
	log          *slog.Logger
}

// New connects to MongoDB, verifies the connection and ensures indexes.
func New(ctx context.Context, cfg Config, log *slog.Logger) (store.Service, error) {
	if log == nil {
		log = slog.Default()
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	db := client.Database(cfg.Database)
	s := &service{
		client:       client,
		users:        db.Collection(usersCollection),
		posts:        db.Collection(postsCollection),
		transactions: cfg.Transactions,
		log:          log,
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return s, nil
}

func (s *service) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "reset.tokenHash", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("creating user indexes: %w", err)
	}

	_, err = s.posts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "author", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("creating post indexes: %w", err)
	}

	return nil
}

// Health pings the primary.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		s.log.Error("db down", "driver", "mongo", "error", err)
		stats["status"] = "down"
		stats["error"] = "database unreachable"
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"
	stats["database"] = s.users.Database().Name()
	return stats
}

// Close disconnects the client.
func (s *service) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.log.Info("disconnected from database", "driver", "mongo")
	return s.client.Disconnect(ctx)
}

// ---------------------------------------------
// Users
// ---------------------------------------------

func (s *service) CreateUser(ctx context.Context, nu models.NewUser) (models.User, error) {
	now := time.Now().UTC()
	doc := newUserDocument(nu, now)

	res, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, store.ErrDuplicatedEntry
		}
		return models.User{}, fmt.Errorf("creating user: %w", err)
	}

	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		doc.ID = id
	}

	return doc.toModel(), nil
}

func (s *service) GetUserByID(ctx context.Context, userID string) (models.User, error) {
	id, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return models.User{}, store.ErrNotFound
	}

	return s.findOne(ctx, bson.M{"_id": id}, "selecting user")
}

func (s *service) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findOne(ctx, bson.M{"email": email}, "selecting user by email")
}

func (s *service) ListUsers(ctx context.Context) ([]models.User, error) {
	cur, err := s.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding users: %w", err)
	}

	users := make([]models.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toModel())
	}
	return users, nil
}

func (s *service) UpdateUser(ctx context.Context, userID string, update models.UpdateUser) (models.User, error) {
	id, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return models.User{}, store.ErrNotFound
	}

	return s.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": updateFields(update, time.Now().UTC())}, "updating user")
}

// ---------------------------------------------
// Password reset
// ---------------------------------------------

func (s *service) SetPasswordResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	state := models.PendingReset(tokenHash, expiresAt)
	if err := state.Validate(); err != nil {
		return err
	}

	return s.setReset(ctx, userID, state, "setting reset token")
}

func (s *service) ClearPasswordResetToken(ctx context.Context, userID string) error {
	return s.setReset(ctx, userID, models.NormalReset(), "clearing reset token")
}

func (s *service) ConsumePasswordResetToken(ctx context.Context, tokenHash string, passwordHash []byte, now time.Time) (models.User, error) {
	update := bson.M{"$set": bson.M{
		"password":  string(passwordHash),
		"reset":     newResetDocument(models.NormalReset()),
		"updatedAt": now.UTC(),
	}}

	return s.findOneAndUpdate(ctx, consumeFilter(tokenHash, now), update, "consuming reset token")
}

func (s *service) setReset(ctx context.Context, userID string, state models.ResetState, op string) error {
	id, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return store.ErrNotFound
	}

	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"reset":     newResetDocument(state),
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ---------------------------------------------
// Account deletion
// ---------------------------------------------

func (s *service) DeleteUserCascade(ctx context.Context, userID string) error {
	id, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return store.ErrNotFound
	}

	if !s.transactions {
		return s.deleteCascade(ctx, id)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, s.deleteCascade(ctx, id)
	})
	return err
}

// deleteCascade removes posts before the user so a failure never leaves
// posts pointing at a missing author.
func (s *service) deleteCascade(ctx context.Context, id bson.ObjectID) error {
	if _, err := s.posts.DeleteMany(ctx, bson.M{"author": id}); err != nil {
		return fmt.Errorf("deleting posts: %w", err)
	}

	res, err := s.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ---------------------------------------------
// Helpers
// ---------------------------------------------

func (s *service) findOne(ctx context.Context, filter bson.M, op string) (models.User, error) {
	var doc userDocument
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, store.ErrNotFound
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toModel(), nil
}

func (s *service) findOneAndUpdate(ctx context.Context, filter, update bson.M, op string) (models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDocument
	if err := s.users.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, store.ErrNotFound
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toModel(), nil
}

func consumeFilter(tokenHash string, now time.Time) bson.M {
	return bson.M{
		"reset.status":    string(models.ResetPending),
		"reset.tokenHash": tokenHash,
		"reset.expiresAt": bson.M{"$gt": now.UTC()},
	}
}

func updateFields(u models.UpdateUser, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}

	fields := []struct {
		key   string
		value *string
	}{
		{"firstName", u.FirstName},
		{"lastName", u.LastName},
		{"bio", u.Bio},
		{"occupation", u.Occupation},
		{"photoUrl", u.PhotoURL},
		{"instagram", u.Instagram},
		{"facebook", u.Facebook},
		{"linkedin", u.LinkedIn},
		{"github", u.GitHub},
	}
	for _, f := range fields {
		if f.value != nil {
			set[f.key] = *f.value
		}
	}

	return set
}
