package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"gofest/model"
)

// Memory is an in-process Store with the same uniqueness rules as the mongo
// indexes. Used by tests and the -memory development mode.
type Memory struct {
	mu            sync.RWMutex
	users         map[primitive.ObjectID]model.User
	fests         map[primitive.ObjectID]model.Fest
	registrations map[primitive.ObjectID]model.Registration
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		users:         make(map[primitive.ObjectID]model.User),
		fests:         make(map[primitive.ObjectID]model.Fest),
		registrations: make(map[primitive.ObjectID]model.Registration),
	}
}

func newer(aCreated, bCreated time.Time, aId, bId primitive.ObjectID) bool {
	if !aCreated.Equal(bCreated) {
		return aCreated.After(bCreated)
	}
	return aId.Hex() > bId.Hex()
}

func sortFests(fests []model.Fest) {
	sort.Slice(fests, func(i, j int) bool {
		return newer(fests[i].CreatedAt, fests[j].CreatedAt, fests[i].Id, fests[j].Id)
	})
}

func sortRegistrations(regs []model.Registration) {
	sort.Slice(regs, func(i, j int) bool {
		return newer(regs[i].CreatedAt, regs[j].CreatedAt, regs[i].Id, regs[j].Id)
	})
}

func duplicate(field, value string) error {
	return fmt.Errorf("%w: %v %q", ErrDuplicate, field, value)
}

// users

func (m *Memory) userConflict(user model.User) error {
	for id, u := range m.users {
		if id == user.Id {
			continue
		}
		if u.Email == user.Email {
			return duplicate("email", user.Email)
		}
		if user.Phone != "" && u.Phone == user.Phone {
			return duplicate("phone", user.Phone)
		}
	}
	return nil
}

func (m *Memory) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user.Id = primitive.NewObjectID()
	if err := m.userConflict(*user); err != nil {
		return err
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	m.users[user.Id] = *user
	return nil
}

func (m *Memory) GetUser(_ context.Context, id primitive.ObjectID) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) findUser(match func(model.User) bool) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}
	return model.User{}, ErrNotFound
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	return m.findUser(func(u model.User) bool { return u.Email == email })
}

func (m *Memory) GetUserByPhone(_ context.Context, phone string) (model.User, error) {
	return m.findUser(func(u model.User) bool { return u.Phone == phone })
}

func (m *Memory) GetUsers(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byId := make(map[primitive.ObjectID]model.User, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			byId[id] = u
		}
	}
	return byId, nil
}

func (m *Memory) UpdateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.Id]; !ok {
		return ErrNotFound
	}
	if err := m.userConflict(*user); err != nil {
		return err
	}
	user.UpdatedAt = time.Now().UTC()
	m.users[user.Id] = *user
	return nil
}

// fests

func festMatches(f model.Fest, query model.FestQuery) bool {
	if query.Category != "" && f.Category != query.Category {
		return false
	}
	if query.Search == "" {
		return true
	}
	needle := strings.ToLower(query.Search)
	for _, field := range []string{f.Title, f.College, f.Tagline, f.Location.City} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func (m *Memory) ListFests(_ context.Context, query model.FestQuery) ([]model.Fest, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := []model.Fest{}
	for _, f := range m.fests {
		if festMatches(f, query) {
			matched = append(matched, f)
		}
	}
	sortFests(matched)

	total := int64(len(matched))
	start := query.Skip
	if start > total {
		start = total
	}
	end := total
	if query.Limit > 0 && start+query.Limit < end {
		end = start + query.Limit
	}
	return matched[start:end], total, nil
}

func (m *Memory) GetFest(_ context.Context, id primitive.ObjectID) (model.Fest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.fests[id]
	if !ok {
		return model.Fest{}, ErrNotFound
	}
	return f, nil
}

func (m *Memory) GetFestBySlug(_ context.Context, slug string) (model.Fest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, f := range m.fests {
		if f.Slug == slug {
			return f, nil
		}
	}
	return model.Fest{}, ErrNotFound
}

func (m *Memory) GetFestsByHost(_ context.Context, host primitive.ObjectID) ([]model.Fest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fests := []model.Fest{}
	for _, f := range m.fests {
		if f.HostedBy == host {
			fests = append(fests, f)
		}
	}
	sortFests(fests)
	return fests, nil
}

func (m *Memory) GetFests(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]model.Fest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byId := make(map[primitive.ObjectID]model.Fest, len(ids))
	for _, id := range ids {
		if f, ok := m.fests[id]; ok {
			byId[id] = f
		}
	}
	return byId, nil
}

func (m *Memory) slugTaken(fest model.Fest) bool {
	for id, f := range m.fests {
		if id != fest.Id && f.Slug == fest.Slug {
			return true
		}
	}
	return false
}

func (m *Memory) CreateFest(_ context.Context, fest *model.Fest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fest.Id = primitive.NewObjectID()
	if m.slugTaken(*fest) {
		return duplicate("slug", fest.Slug)
	}
	now := time.Now().UTC()
	fest.CreatedAt, fest.UpdatedAt = now, now
	m.fests[fest.Id] = *fest
	return nil
}

func (m *Memory) UpdateFest(_ context.Context, fest *model.Fest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.fests[fest.Id]; !ok {
		return ErrNotFound
	}
	if m.slugTaken(*fest) {
		return duplicate("slug", fest.Slug)
	}
	fest.UpdatedAt = time.Now().UTC()
	m.fests[fest.Id] = *fest
	return nil
}

func (m *Memory) DeleteFest(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.fests[id]; !ok {
		return ErrNotFound
	}
	delete(m.fests, id)
	return nil
}

func (m *Memory) IncRegistrations(_ context.Context, id primitive.ObjectID, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.fests[id]
	if !ok {
		return nil
	}
	if f.RegistrationsCount+delta < 0 {
		return nil
	}
	f.RegistrationsCount += delta
	f.UpdatedAt = time.Now().UTC()
	m.fests[id] = f
	return nil
}

// registrations

func (m *Memory) CreateRegistration(_ context.Context, reg *model.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.registrations {
		if r.User == reg.User && r.Fest == reg.Fest {
			return duplicate("registration", reg.User.Hex()+"/"+reg.Fest.Hex())
		}
	}
	now := time.Now().UTC()
	reg.Id = primitive.NewObjectID()
	reg.CreatedAt, reg.UpdatedAt = now, now
	if reg.RegistrationDate.IsZero() {
		reg.RegistrationDate = now
	}
	m.registrations[reg.Id] = *reg
	return nil
}

func (m *Memory) GetRegistration(_ context.Context, id primitive.ObjectID) (model.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.registrations[id]
	if !ok {
		return model.Registration{}, ErrNotFound
	}
	return r, nil
}

func (m *Memory) FindRegistration(_ context.Context, user, fest primitive.ObjectID) (model.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.registrations {
		if r.User == user && r.Fest == fest {
			return r, nil
		}
	}
	return model.Registration{}, ErrNotFound
}

func (m *Memory) filterRegistrations(match func(model.Registration) bool) []model.Registration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	regs := []model.Registration{}
	for _, r := range m.registrations {
		if match(r) {
			regs = append(regs, r)
		}
	}
	sortRegistrations(regs)
	return regs
}

func (m *Memory) GetRegistrationsByUser(_ context.Context, user primitive.ObjectID) ([]model.Registration, error) {
	return m.filterRegistrations(func(r model.Registration) bool { return r.User == user }), nil
}

func (m *Memory) GetRegistrationsByFest(_ context.Context, fest primitive.ObjectID) ([]model.Registration, error) {
	return m.filterRegistrations(func(r model.Registration) bool { return r.Fest == fest }), nil
}

func (m *Memory) ReactivateRegistration(_ context.Context, reg *model.Registration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.registrations[reg.Id]
	if !ok || !stored.IsCancelled() {
		return false, nil
	}
	reg.UpdatedAt = time.Now().UTC()
	m.registrations[reg.Id] = *reg
	return true, nil
}

func (m *Memory) CancelRegistration(_ context.Context, id primitive.ObjectID) (model.Registration, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reg, ok := m.registrations[id]
	if !ok || reg.IsCancelled() {
		return model.Registration{}, false, nil
	}
	reg.Status = model.RegistrationCancelled
	reg.UpdatedAt = time.Now().UTC()
	m.registrations[id] = reg
	return reg, true, nil
}

func (m *Memory) DeleteRegistrationsByFest(_ context.Context, fest primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, r := range m.registrations {
		if r.Fest == fest {
			delete(m.registrations, id)
			deleted++
		}
	}
	return deleted, nil
}
