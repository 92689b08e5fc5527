package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gofest/config"
	"gofest/model"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

const (
	UsersCollection         = "users"
	FestsCollection         = "fests"
	RegistrationsCollection = "registrations"
)

type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id primitive.ObjectID) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByPhone(ctx context.Context, phone string) (model.User, error)
	GetUsers(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
}

type FestStore interface {
	ListFests(ctx context.Context, query model.FestQuery) ([]model.Fest, int64, error)
	GetFest(ctx context.Context, id primitive.ObjectID) (model.Fest, error)
	GetFestBySlug(ctx context.Context, slug string) (model.Fest, error)
	GetFestsByHost(ctx context.Context, host primitive.ObjectID) ([]model.Fest, error)
	GetFests(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]model.Fest, error)
	CreateFest(ctx context.Context, fest *model.Fest) error
	UpdateFest(ctx context.Context, fest *model.Fest) error
	DeleteFest(ctx context.Context, id primitive.ObjectID) error
	// IncRegistrations adds delta to the fest's registrationsCount, never going below zero.
	IncRegistrations(ctx context.Context, id primitive.ObjectID, delta int) error
}

type RegistrationStore interface {
	CreateRegistration(ctx context.Context, reg *model.Registration) error
	GetRegistration(ctx context.Context, id primitive.ObjectID) (model.Registration, error)
	FindRegistration(ctx context.Context, user, fest primitive.ObjectID) (model.Registration, error)
	GetRegistrationsByUser(ctx context.Context, user primitive.ObjectID) ([]model.Registration, error)
	GetRegistrationsByFest(ctx context.Context, fest primitive.ObjectID) ([]model.Registration, error)
	// ReactivateRegistration stores reg only while the stored copy is still
	// cancelled and reports whether it did.
	ReactivateRegistration(ctx context.Context, reg *model.Registration) (bool, error)
	// CancelRegistration cancels the registration unless it already is cancelled
	// and reports whether this call made the change.
	CancelRegistration(ctx context.Context, id primitive.ObjectID) (model.Registration, bool, error)
	DeleteRegistrationsByFest(ctx context.Context, fest primitive.ObjectID) (int64, error)
}

type Store interface {
	UserStore
	FestStore
	RegistrationStore
}

// Connect opens the mongo client for cfg, checks it with a ping and returns the
// configured database.
func Connect(ctx context.Context, cfg config.Database, log *logrus.Entry) (*mongo.Database, error) {
	uri := NormalizeURI(cfg.URL, cfg.Name)

	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second).
		SetSocketTimeout(45 * time.Second)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to the db: %w", err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("db is not available: %w", err)
	}

	log.Infof("connected to MongoDB: %v", cfg.Name)
	return client.Database(cfg.Name), nil
}

// EnsureIndexes creates the unique and lookup indexes the stores rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		FestsCollection: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "hostedBy", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		RegistrationsCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "fest", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "fest", Value: 1}}},
			{Keys: bson.D{{Key: "user", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
	}

	for collection, models := range indexes {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("cannot create indexes for %v: %w", collection, err)
		}
	}
	return nil
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}
