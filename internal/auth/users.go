package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"mesa/internal/domain"
	"mesa/internal/store"
)

// Seeded account names.
const (
	AdminUsername   = "admin"
	KitchenUsername = "cocina"
)

// ErrInvalidCredentials is returned for unknown users, wrong passwords and
// users without an allowed role alike.
var ErrInvalidCredentials = &domain.Error{Code: domain.CodeInvalidCredentials, Message: "invalid credentials"}

// Users reads and seeds the users collection.
type Users struct {
	store *store.Store
	cost  int
	now   func() time.Time
}

// UsersOption configures a Users directory.
type UsersOption func(*Users)

// WithBcryptCost sets the hashing cost for seeded passwords. Values outside
// bcrypt's range fall back to the default.
func WithBcryptCost(cost int) UsersOption {
	return func(u *Users) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			u.cost = cost
		}
	}
}

// NewUsers creates a user directory over s.
func NewUsers(s *store.Store, opts ...UsersOption) *Users {
	u := &Users{
		store: s,
		cost:  bcrypt.DefaultCost,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// HashPassword returns the bcrypt hash of password.
func (u *Users) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Seed creates the admin and kitchen accounts when they are absent. Existing
// accounts keep their passwords.
func (u *Users) Seed(ctx context.Context, adminPassword, kitchenPassword string) error {
	seeds := []struct {
		username string
		password string
		role     domain.Role
	}{
		{AdminUsername, adminPassword, domain.RoleAdmin},
		{KitchenUsername, kitchenPassword, domain.RoleKitchen},
	}

	for _, seed := range seeds {
		var exists bool
		u.store.Read(func(d *store.Data) {
			exists = d.UserIndex(seed.username) >= 0
		})
		if exists {
			continue
		}

		hash, err := u.HashPassword(seed.password)
		if err != nil {
			return err
		}

		user := domain.User{
			ID:           u.store.NextID(),
			Username:     seed.username,
			PasswordHash: hash,
			Role:         seed.role,
			CreatedAt:    u.now().UTC(),
		}
		err = u.store.Update(func(d *store.Data) error {
			if d.UserIndex(user.Username) >= 0 {
				return nil
			}
			d.Users = append(d.Users, user)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", seed.username, err)
		}
		log.Info().Str("username", seed.username).Str("role", string(seed.role)).Msg("Seeded staff user")
	}
	return nil
}

// Authenticate checks username and password and that the user holds one of
// allowed roles.
func (u *Users) Authenticate(username, password string, allowed ...domain.Role) (*domain.User, error) {
	var (
		user  domain.User
		found bool
	)
	u.store.Read(func(d *store.Data) {
		if i := d.UserIndex(username); i >= 0 {
			user = d.Users[i]
			found = true
		}
	})
	if !found {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	p := domain.Principal{Username: user.Username, Role: user.Role}
	if !p.HasRole(allowed...) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}
