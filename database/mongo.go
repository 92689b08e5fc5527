package database

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gofest/model"
)

// Mongo is the MongoDB backed Store.
type Mongo struct {
	users         *mongo.Collection
	fests         *mongo.Collection
	registrations *mongo.Collection
	log           *logrus.Entry
}

var _ Store = (*Mongo)(nil)

func NewMongo(db *mongo.Database, log *logrus.Entry) *Mongo {
	return &Mongo{
		users:         db.Collection(UsersCollection),
		fests:         db.Collection(FestsCollection),
		registrations: db.Collection(RegistrationsCollection),
		log:           log,
	}
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	items := []T{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter interface{}) (T, error) {
	var item T
	err := coll.FindOne(ctx, filter).Decode(&item)
	return item, translateError(err)
}

func replaceById(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID, doc interface{}) error {
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// users

func (m *Mongo) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.Id = primitive.NewObjectID()
	user.CreatedAt, user.UpdatedAt = now, now
	_, err := m.users.InsertOne(ctx, user)
	return translateError(err)
}

func (m *Mongo) GetUser(ctx context.Context, id primitive.ObjectID) (model.User, error) {
	return findOne[model.User](ctx, m.users, bson.M{"_id": id})
}

func (m *Mongo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return findOne[model.User](ctx, m.users, bson.M{"email": email})
}

func (m *Mongo) GetUserByPhone(ctx context.Context, phone string) (model.User, error) {
	return findOne[model.User](ctx, m.users, bson.M{"phone": phone})
}

func (m *Mongo) GetUsers(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]model.User, error) {
	users, err := findAll[model.User](ctx, m.users, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	byId := make(map[primitive.ObjectID]model.User, len(users))
	for _, u := range users {
		byId[u.Id] = u
	}
	return byId, nil
}

func (m *Mongo) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()
	return replaceById(ctx, m.users, user.Id, user)
}

// fests

func festFilter(query model.FestQuery) bson.M {
	filter := bson.M{}
	if query.Category != "" {
		filter["category"] = query.Category
	}
	if query.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(query.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"college": re},
			bson.M{"tagline": re},
			bson.M{"location.city": re},
		}
	}
	return filter
}

func (m *Mongo) ListFests(ctx context.Context, query model.FestQuery) ([]model.Fest, int64, error) {
	filter := festFilter(query)

	total, err := m.fests.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(newestFirst).SetSkip(query.Skip).SetLimit(query.Limit)
	fests, err := findAll[model.Fest](ctx, m.fests, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return fests, total, nil
}

func (m *Mongo) GetFest(ctx context.Context, id primitive.ObjectID) (model.Fest, error) {
	return findOne[model.Fest](ctx, m.fests, bson.M{"_id": id})
}

func (m *Mongo) GetFestBySlug(ctx context.Context, slug string) (model.Fest, error) {
	return findOne[model.Fest](ctx, m.fests, bson.M{"slug": slug})
}

func (m *Mongo) GetFestsByHost(ctx context.Context, host primitive.ObjectID) ([]model.Fest, error) {
	return findAll[model.Fest](ctx, m.fests, bson.M{"hostedBy": host}, options.Find().SetSort(newestFirst))
}

func (m *Mongo) GetFests(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]model.Fest, error) {
	fests, err := findAll[model.Fest](ctx, m.fests, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	byId := make(map[primitive.ObjectID]model.Fest, len(fests))
	for _, f := range fests {
		byId[f.Id] = f
	}
	return byId, nil
}

func (m *Mongo) CreateFest(ctx context.Context, fest *model.Fest) error {
	now := time.Now().UTC()
	fest.Id = primitive.NewObjectID()
	fest.CreatedAt, fest.UpdatedAt = now, now
	_, err := m.fests.InsertOne(ctx, fest)
	return translateError(err)
}

func (m *Mongo) UpdateFest(ctx context.Context, fest *model.Fest) error {
	fest.UpdatedAt = time.Now().UTC()
	return replaceById(ctx, m.fests, fest.Id, fest)
}

func (m *Mongo) DeleteFest(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.fests.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) IncRegistrations(ctx context.Context, id primitive.ObjectID, delta int) error {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["registrationsCount"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"registrationsCount": delta},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := m.fests.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		m.log.Warnf("registrationsCount of fest %v not changed by %v", id.Hex(), delta)
	}
	return nil
}

// registrations

func (m *Mongo) CreateRegistration(ctx context.Context, reg *model.Registration) error {
	now := time.Now().UTC()
	reg.Id = primitive.NewObjectID()
	reg.CreatedAt, reg.UpdatedAt = now, now
	if reg.RegistrationDate.IsZero() {
		reg.RegistrationDate = now
	}
	_, err := m.registrations.InsertOne(ctx, reg)
	return translateError(err)
}

func (m *Mongo) GetRegistration(ctx context.Context, id primitive.ObjectID) (model.Registration, error) {
	return findOne[model.Registration](ctx, m.registrations, bson.M{"_id": id})
}

func (m *Mongo) FindRegistration(ctx context.Context, user, fest primitive.ObjectID) (model.Registration, error) {
	return findOne[model.Registration](ctx, m.registrations, bson.M{"user": user, "fest": fest})
}

func (m *Mongo) GetRegistrationsByUser(ctx context.Context, user primitive.ObjectID) ([]model.Registration, error) {
	return findAll[model.Registration](ctx, m.registrations, bson.M{"user": user}, options.Find().SetSort(newestFirst))
}

func (m *Mongo) GetRegistrationsByFest(ctx context.Context, fest primitive.ObjectID) ([]model.Registration, error) {
	return findAll[model.Registration](ctx, m.registrations, bson.M{"fest": fest}, options.Find().SetSort(newestFirst))
}

func (m *Mongo) ReactivateRegistration(ctx context.Context, reg *model.Registration) (bool, error) {
	reg.UpdatedAt = time.Now().UTC()
	filter := bson.M{"_id": reg.Id, "status": model.RegistrationCancelled}
	res, err := m.registrations.ReplaceOne(ctx, filter, reg)
	if err != nil {
		return false, translateError(err)
	}
	return res.MatchedCount == 1, nil
}

func (m *Mongo) CancelRegistration(ctx context.Context, id primitive.ObjectID) (model.Registration, bool, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$ne": model.RegistrationCancelled}}
	update := bson.M{"$set": bson.M{"status": model.RegistrationCancelled, "updatedAt": time.Now().UTC()}}

	var reg model.Registration
	err := m.registrations.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&reg)
	if err = translateError(err); errors.Is(err, ErrNotFound) {
		return model.Registration{}, false, nil
	}
	if err != nil {
		return model.Registration{}, false, err
	}
	return reg, true, nil
}

func (m *Mongo) DeleteRegistrationsByFest(ctx context.Context, fest primitive.ObjectID) (int64, error) {
	res, err := m.registrations.DeleteMany(ctx, bson.M{"fest": fest})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
