package handler

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okten/crm-api/internal/model"
	"github.com/okten/crm-api/internal/repository"
	"github.com/okten/crm-api/internal/token"
)

// In-memory store fakes. They mirror the contracts of the MySQL
// repositories closely enough for handler flows: sql.ErrNoRows for
// missing rows, sentinel errors for conflicts, blocked-session
// semantics for rotation.

type fakeUserStore struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uint64]*model.User{}}
}

func (f *fakeUserStore) add(u model.User) model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u.ID = f.nextID
	f.users[u.ID] = &u
	return u
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.users {
		if u.Email == email {
			return *u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (f *fakeUserStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return *u, nil
	}
	return model.User{}, sql.ErrNoRows
}

func (f *fakeUserStore) CreateManager(_ context.Context, email, firstName, lastName, recoveryToken string, expires time.Time) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	f.nextID++
	tok := recoveryToken
	exp := expires
	f.users[f.nextID] = &model.User{
		ID: f.nextID, Email: email, FirstName: firstName, LastName: lastName,
		Role: model.RoleManager, RecoveryToken: &tok, RecoveryExpiresAt: &exp,
	}
	return f.nextID, nil
}

func (f *fakeUserStore) GetByRecoveryToken(_ context.Context, recoveryToken string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.RecoveryToken != nil && *u.RecoveryToken == recoveryToken {
			return *u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (f *fakeUserStore) SetRecoveryToken(_ context.Context, userID uint64, recoveryToken string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		tok := recoveryToken
		exp := expires
		u.RecoveryToken = &tok
		u.RecoveryExpiresAt = &exp
	}
	return nil
}

func (f *fakeUserStore) SetPasswordAndActivate(_ context.Context, userID uint64, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.PasswordHash = passwordHash
		u.RecoveryToken = nil
		u.RecoveryExpiresAt = nil
		u.IsActive = true
	}
	return nil
}

func (f *fakeUserStore) SetBanned(_ context.Context, userID uint64, banned bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.IsBanned = banned
	}
	return nil
}

func (f *fakeUserStore) ListManagers(_ context.Context, page, limit int) ([]model.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	var all []model.User
	for _, u := range f.users {
		if u.Role == model.RoleManager {
			all = append(all, *u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]*model.Session{}}
}

func (f *fakeSessionStore) Create(_ context.Context, userID uint64, p token.Pair) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[p.JTI] = &model.Session{
		JTI: p.JTI, AccessToken: p.AccessToken, RefreshToken: p.RefreshToken,
		AccessExpiresAt: p.AccessExpiresAt, RefreshExpiresAt: p.RefreshExpiresAt,
		UserID: userID,
	}
	return nil
}

func (f *fakeSessionStore) GetByJTI(_ context.Context, jti string) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[jti]; ok {
		return *s, nil
	}
	return model.Session{}, sql.ErrNoRows
}

func (f *fakeSessionStore) Block(_ context.Context, jti string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[jti]; ok {
		s.IsBlocked = true
	}
	return nil
}

func (f *fakeSessionStore) Rotate(_ context.Context, oldJTI string, userID uint64, p token.Pair) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.sessions[oldJTI]
	if !ok || old.IsBlocked {
		return repository.ErrSessionBlocked
	}
	old.IsBlocked = true
	f.sessions[p.JTI] = &model.Session{
		JTI: p.JTI, AccessToken: p.AccessToken, RefreshToken: p.RefreshToken,
		AccessExpiresAt: p.AccessExpiresAt, RefreshExpiresAt: p.RefreshExpiresAt,
		UserID: userID,
	}
	return nil
}

func (f *fakeSessionStore) BlockAllForUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.UserID == userID {
			s.IsBlocked = true
		}
	}
	return nil
}

func (f *fakeSessionStore) activeCount(userID uint64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sessions {
		if s.UserID == userID && !s.IsBlocked {
			n++
		}
	}
	return n
}

type fakeOrderStore struct {
	mu        sync.Mutex
	orders    map[uint64]*model.Order
	counts    map[uint64]model.StatusCounts // keyed by manager id, 0 = overall
	lastPatch repository.OrderPatch
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: map[uint64]*model.Order{}, counts: map[uint64]model.StatusCounts{}}
}

func (f *fakeOrderStore) GetByID(_ context.Context, id uint64) (model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[id]; ok {
		return *o, nil
	}
	return model.Order{}, sql.ErrNoRows
}

func (f *fakeOrderStore) List(_ context.Context, _ repository.OrderQuery) ([]model.Order, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.Order
	for _, o := range f.orders {
		all = append(all, *o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, len(all), nil
}

func (f *fakeOrderStore) Update(_ context.Context, id uint64, patch repository.OrderPatch) (model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return model.Order{}, sql.ErrNoRows
	}
	f.lastPatch = patch
	for _, field := range patch {
		if field.Column == "status" {
			if field.Value == nil {
				o.Status = nil
			} else {
				s := field.Value.(string)
				o.Status = &s
			}
		}
	}
	return *o, nil
}

func (f *fakeOrderStore) CountByStatus(_ context.Context, managerID *uint64) (model.StatusCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := uint64(0)
	if managerID != nil {
		key = *managerID
	}
	return f.counts[key], nil
}

func (f *fakeOrderStore) ManagerCounts(_ context.Context) ([]model.ManagerStatistics, error) {
	return nil, nil
}

type fakeGroupStore struct {
	mu     sync.Mutex
	nextID uint64
	groups []model.Group
}

func newFakeGroupStore() *fakeGroupStore { return &fakeGroupStore{} }

func (f *fakeGroupStore) Create(_ context.Context, name string) (model.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.groups {
		if g.Name == name {
			return model.Group{}, repository.ErrGroupExists
		}
	}
	f.nextID++
	g := model.Group{ID: f.nextID, Name: name, CreatedAt: time.Now().UTC()}
	f.groups = append(f.groups, g)
	return g, nil
}

func (f *fakeGroupStore) ListAll(_ context.Context) ([]model.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Group, len(f.groups))
	copy(out, f.groups)
	return out, nil
}

type fakeCommentStore struct {
	mu       sync.Mutex
	nextID   uint64
	orders   map[uint64]*model.Order
	comments []repository.CommentDetail
}

func newFakeCommentStore() *fakeCommentStore {
	return &fakeCommentStore{orders: map[uint64]*model.Order{}}
}

func (f *fakeCommentStore) CreateWithClaim(_ context.Context, orderID, authorID uint64, message string) (model.Comment, model.Order, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return model.Comment{}, model.Order{}, false, sql.ErrNoRows
	}
	if o.ManagerID != nil && *o.ManagerID != authorID {
		return model.Comment{}, model.Order{}, false, repository.ErrForbidden
	}
	claimed := o.ManagerID == nil
	if claimed {
		id := authorID
		o.ManagerID = &id
	}
	if o.Status == nil || *o.Status == model.StatusNew {
		s := model.StatusInWork
		o.Status = &s
	}
	f.nextID++
	c := model.Comment{ID: f.nextID, Message: message, OrderID: orderID, UserID: authorID, CreatedAt: time.Now().UTC()}
	f.comments = append(f.comments, repository.CommentDetail{
		ID: c.ID, Message: c.Message, OrderID: c.OrderID, UserID: c.UserID, CreatedAt: c.CreatedAt,
	})
	return c, *o, claimed, nil
}

func (f *fakeCommentStore) ListAll(_ context.Context) ([]repository.CommentDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.CommentDetail, len(f.comments))
	copy(out, f.comments)
	return out, nil
}
