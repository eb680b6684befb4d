package storage

import (
	"context"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const UsersStore = "users"

// Profile is captured on first contact and never refreshed.
type Profile struct {
	Username     string `json:"username"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	LanguageCode string `json:"languageCode"`
}

type UserProfile struct {
	Profile
	JoinedAt     time.Time `json:"joinedAt"`
	LastActive   time.Time `json:"lastActive"`
	IsSubscribed bool      `json:"isSubscribed"`
	SearchCount  int       `json:"searchCount"`
	ViewedCodes  []string  `json:"viewedCodes,omitempty"`
}

type User struct {
	ChatID int64
	UserProfile
}

type Registry struct {
	store *Store[UserProfile]
	now   func() time.Time
}

func NewRegistry(b Backend, log *zap.SugaredLogger) *Registry {
	return &Registry{store: NewStore[UserProfile](UsersStore, b, log), now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

func key(chatID int64) string { return strconv.FormatInt(chatID, 10) }

// Upsert creates the user on first contact; later calls only refresh LastActive.
func (r *Registry) Upsert(ctx context.Context, chatID int64, p Profile) (UserProfile, error) {
	var out UserProfile
	err := r.store.Update(ctx, func(m map[string]UserProfile) error {
		now := r.now()
		u, ok := m[key(chatID)]
		if !ok {
			u = UserProfile{Profile: p, JoinedAt: now}
		}
		u.LastActive = now
		m[key(chatID)] = u
		out = u
		return nil
	})
	return out, err
}

func (r *Registry) Get(ctx context.Context, chatID int64) (UserProfile, bool) {
	u, ok := r.store.Snapshot(ctx)[key(chatID)]
	return u, ok
}

func (r *Registry) MarkSubscribed(ctx context.Context, chatID int64) error {
	return r.modify(ctx, chatID, func(u *UserProfile) bool {
		if u.IsSubscribed {
			return false
		}
		u.IsSubscribed = true
		return true
	})
}

func (r *Registry) IncrementSearchCount(ctx context.Context, chatID int64) error {
	return r.modify(ctx, chatID, func(u *UserProfile) bool {
		u.SearchCount++
		return true
	})
}

func (r *Registry) AddViewedCode(ctx context.Context, chatID int64, code string) error {
	return r.modify(ctx, chatID, func(u *UserProfile) bool {
		return addCode(u, code)
	})
}

// RecordDelivery counts one successful content delivery in a single write.
func (r *Registry) RecordDelivery(ctx context.Context, chatID int64, code string) error {
	return r.modify(ctx, chatID, func(u *UserProfile) bool {
		u.SearchCount++
		addCode(u, code)
		return true
	})
}

func addCode(u *UserProfile, code string) bool {
	for _, c := range u.ViewedCodes {
		if c == code {
			return false
		}
	}
	u.ViewedCodes = append(u.ViewedCodes, code)
	return true
}

func (r *Registry) modify(ctx context.Context, chatID int64, fn func(u *UserProfile) bool) error {
	return r.store.Update(ctx, func(m map[string]UserProfile) error {
		u, ok := m[key(chatID)]
		if !ok {
			now := r.now()
			u = UserProfile{JoinedAt: now, LastActive: now}
		}
		if !fn(&u) && ok {
			return errUnchanged
		}
		m[key(chatID)] = u
		return nil
	})
}

// All returns every user ordered by chat id.
func (r *Registry) All(ctx context.Context) []User {
	m := r.store.Snapshot(ctx)
	out := make([]User, 0, len(m))
	for k, u := range m {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, User{ChatID: id, UserProfile: u})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out
}

// ActiveSubscribers lists subscribed chat ids other than adminID.
func (r *Registry) ActiveSubscribers(ctx context.Context, adminID int64) ([]int64, error) {
	m, err := r.store.Read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(m))
	for k, u := range m {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil || id == adminID || !u.IsSubscribed {
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
