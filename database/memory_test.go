package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"gofest/model"
)

func newFest(title, category, city string, host primitive.ObjectID) *model.Fest {
	f := &model.Fest{
		Title:    title,
		Slug:     model.Slugify(title),
		Category: category,
		College:  title + " College",
		Location: model.Location{City: city, State: "Maharashtra"},
		HostedBy: host,
	}
	f.ApplyDefaults()
	return f
}

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	t.Run("create and read back", func(t *testing.T) {
		user := &model.User{Name: "Riya", Email: "riya@example.com", Phone: "9999900000"}
		require.NoError(t, store.CreateUser(ctx, user))
		assert.False(t, user.Id.IsZero())

		got, err := store.GetUserByEmail(ctx, "riya@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.Id, got.Id)

		got, err = store.GetUserByPhone(ctx, "9999900000")
		require.NoError(t, err)
		assert.Equal(t, user.Id, got.Id)
	})

	t.Run("unique email and phone", func(t *testing.T) {
		err := store.CreateUser(ctx, &model.User{Name: "Other", Email: "riya@example.com"})
		assert.True(t, errors.Is(err, ErrDuplicate))

		err = store.CreateUser(ctx, &model.User{Name: "Other", Email: "other@example.com", Phone: "9999900000"})
		assert.True(t, errors.Is(err, ErrDuplicate))

		// phone is sparse: many users without one
		require.NoError(t, store.CreateUser(ctx, &model.User{Name: "A", Email: "a@example.com"}))
		require.NoError(t, store.CreateUser(ctx, &model.User{Name: "B", Email: "b@example.com"}))
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := store.GetUser(ctx, primitive.NewObjectID())
		assert.Equal(t, ErrNotFound, err)
	})
}

func TestMemoryFests(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	host := primitive.NewObjectID()

	for _, f := range []*model.Fest{
		newFest("Mood Indigo", "Cultural", "Mumbai", host),
		newFest("Techfest", "Technical", "Mumbai", host),
		newFest("Saarang", "Cultural", "Chennai", primitive.NewObjectID()),
	} {
		require.NoError(t, store.CreateFest(ctx, f))
	}

	t.Run("newest first with paging", func(t *testing.T) {
		fests, total, err := store.ListFests(ctx, model.FestQuery{Limit: 2})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		require.Len(t, fests, 2)
		assert.Equal(t, "Saarang", fests[0].Title)
		assert.Equal(t, "Techfest", fests[1].Title)

		fests, _, err = store.ListFests(ctx, model.FestQuery{Skip: 2, Limit: 2})
		require.NoError(t, err)
		require.Len(t, fests, 1)
		assert.Equal(t, "Mood Indigo", fests[0].Title)

		fests, _, err = store.ListFests(ctx, model.FestQuery{Skip: 10, Limit: 2})
		require.NoError(t, err)
		assert.Empty(t, fests)
	})

	t.Run("category and search", func(t *testing.T) {
		fests, total, err := store.ListFests(ctx, model.FestQuery{Category: "Cultural", Limit: 20})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, fests, 2)

		fests, _, err = store.ListFests(ctx, model.FestQuery{Search: "mumbai", Limit: 20})
		require.NoError(t, err)
		assert.Len(t, fests, 2)
	})

	t.Run("slug is unique", func(t *testing.T) {
		err := store.CreateFest(ctx, newFest("Techfest", "Technical", "Pune", host))
		assert.True(t, errors.Is(err, ErrDuplicate))
	})

	t.Run("hosted by", func(t *testing.T) {
		fests, err := store.GetFestsByHost(ctx, host)
		require.NoError(t, err)
		assert.Len(t, fests, 2)
	})

	t.Run("registrations count never negative", func(t *testing.T) {
		f, err := store.GetFestBySlug(ctx, "saarang")
		require.NoError(t, err)

		require.NoError(t, store.IncRegistrations(ctx, f.Id, 1))
		require.NoError(t, store.IncRegistrations(ctx, f.Id, -1))
		require.NoError(t, store.IncRegistrations(ctx, f.Id, -1))

		f, err = store.GetFest(ctx, f.Id)
		require.NoError(t, err)
		assert.Equal(t, 0, f.RegistrationsCount)
	})
}

func TestMemoryRegistrations(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	user := primitive.NewObjectID()
	fest := primitive.NewObjectID()

	reg := &model.Registration{User: user, Fest: fest, Status: model.RegistrationRegistered}
	require.NoError(t, store.CreateRegistration(ctx, reg))
	assert.False(t, reg.RegistrationDate.IsZero())

	err := store.CreateRegistration(ctx, &model.Registration{User: user, Fest: fest})
	assert.True(t, errors.Is(err, ErrDuplicate))

	found, err := store.FindRegistration(ctx, user, fest)
	require.NoError(t, err)
	assert.Equal(t, reg.Id, found.Id)

	cancelled, changed, err := store.CancelRegistration(ctx, found.Id)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, cancelled.IsCancelled())
	got, err := store.GetRegistration(ctx, reg.Id)
	require.NoError(t, err)
	assert.True(t, got.IsCancelled())

	_, changed, err = store.CancelRegistration(ctx, found.Id)
	require.NoError(t, err)
	assert.False(t, changed)

	got.Status = model.RegistrationRegistered
	changed, err = store.ReactivateRegistration(ctx, &got)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = store.ReactivateRegistration(ctx, &got)
	require.NoError(t, err)
	assert.False(t, changed)

	byUser, err := store.GetRegistrationsByUser(ctx, user)
	require.NoError(t, err)
	assert.Len(t, byUser, 1)

	deleted, err := store.DeleteRegistrationsByFest(ctx, fest)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	byFest, err := store.GetRegistrationsByFest(ctx, fest)
	require.NoError(t, err)
	assert.Empty(t, byFest)
}

func TestMemoryRegistrationTransitionsHappenOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	reg := &model.Registration{User: primitive.NewObjectID(), Fest: primitive.NewObjectID(), Status: model.RegistrationRegistered}
	require.NoError(t, store.CreateRegistration(ctx, reg))

	race := func(fn func() bool) int64 {
		var wins atomic.Int64
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if fn() {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		return wins.Load()
	}

	cancels := race(func() bool {
		_, changed, err := store.CancelRegistration(ctx, reg.Id)
		return err == nil && changed
	})
	assert.EqualValues(t, 1, cancels)

	reactivations := race(func() bool {
		again := *reg
		again.Status = model.RegistrationRegistered
		changed, err := store.ReactivateRegistration(ctx, &again)
		return err == nil && changed
	})
	assert.EqualValues(t, 1, reactivations)
}
