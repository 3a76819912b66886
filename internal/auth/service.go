package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"mesa/internal/audit"
	"mesa/internal/domain"
	"mesa/internal/metrics"
)

// Auditor records state-changing actions.
type Auditor interface {
	Record(ctx context.Context, actor, action, details string)
}

// Session is the result of a successful login.
type Session struct {
	Token    string
	User     *domain.User
	Redirect string
}

// Service runs staff logins and logouts.
type Service struct {
	users *Users
	jwt   *JWTManager
	audit Auditor
}

// NewService creates a login service.
func NewService(users *Users, jwt *JWTManager, audit Auditor) *Service {
	return &Service{users: users, jwt: jwt, audit: audit}
}

// Login authenticates a staff member for an endpoint that admits allowed
// roles. endpoint labels audit entries and metrics.
func (s *Service) Login(ctx context.Context, endpoint, username, password, returnTo string, allowed ...domain.Role) (*Session, error) {
	user, err := s.users.Authenticate(username, password, allowed...)
	if err != nil {
		s.audit.Record(ctx, domain.ActorAnonymous, audit.ActionLoginFailed,
			fmt.Sprintf("Failed %s login: %s", endpoint, username))
		metrics.LoginsTotal.WithLabelValues(endpoint, "failed").Inc()
		log.Warn().Str("username", username).Str("endpoint", endpoint).Msg("Login failed")
		return nil, err
	}

	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	s.audit.Record(ctx, user.Username, audit.ActionLoginSuccess,
		fmt.Sprintf("%s %s logged in", user.Role, user.Username))
	metrics.LoginsTotal.WithLabelValues(endpoint, "success").Inc()
	log.Info().Str("username", user.Username).Str("role", string(user.Role)).Msg("Staff login")

	return &Session{
		Token:    token,
		User:     user,
		Redirect: SafeRedirect(returnTo, user.Role),
	}, nil
}

// Logout records the end of p's session. Anonymous logouts are not audited.
func (s *Service) Logout(ctx context.Context, p *domain.Principal) {
	if p == nil {
		return
	}
	s.audit.Record(ctx, p.Username, audit.ActionLogout,
		fmt.Sprintf("User %s (%s) logged out", p.Username, p.Role))
}

// SessionTTL returns the lifetime of issued sessions.
func (s *Service) SessionTTL() time.Duration {
	return s.jwt.TTL()
}
