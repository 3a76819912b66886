package auth

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"mesa/internal/audit"
	"mesa/internal/domain"
	"mesa/internal/store"
)

const testJWTSecret = "auth-test-jwt-secret-with-32-characters"

type memoryAuditor struct {
	mu      sync.Mutex
	entries []domain.AuditLogEntry
}

func (m *memoryAuditor) Record(_ context.Context, actor, action, details string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, domain.AuditLogEntry{Actor: actor, Action: action, Details: details})
}

func (m *memoryAuditor) last() domain.AuditLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[len(m.entries)-1]
}

func setupTestUsers(t *testing.T) (*Users, *store.Store) {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, store.NewFileBackend(filepath.Join(t.TempDir(), "db.json")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(ctx) })

	users := NewUsers(s, WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, users.Seed(ctx, "admin123", "cocina123"))
	return users, s
}

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager(testJWTSecret, time.Hour)
	user := &domain.User{Username: "admin", Role: domain.RoleAdmin}

	token, err := m.GenerateToken(user)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.NotEqual(t, [16]byte{}, [16]byte(claims.JTI))
	assert.Equal(t, &domain.Principal{Username: "admin", Role: domain.RoleAdmin}, claims.Principal())
}

func TestJWTRejects(t *testing.T) {
	m := NewJWTManager(testJWTSecret, time.Hour)
	user := &domain.User{Username: "cocina", Role: domain.RoleKitchen}

	token, err := m.GenerateToken(user)
	require.NoError(t, err)

	other := NewJWTManager("a-completely-different-secret-of-32-chars", time.Hour)
	_, err = other.ValidateToken(token)
	assert.Error(t, err)

	expired := NewJWTManager(testJWTSecret, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.ValidateToken(token)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"username": "admin", "role": "admin", "exp": time.Now().Add(time.Hour).Unix(),
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.ValidateToken(unsigned)
	assert.Error(t, err)

	badRole := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": "x", "role": "customer", "jti": "5f0c2b36-6d3c-4a8e-9d61-4a8b0f0f7a11", "exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := badRole.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	_, err = m.ValidateToken(signed)
	assert.Error(t, err)

	_, err = NewJWTManager("", time.Hour).GenerateToken(user)
	assert.Error(t, err)
}

func TestSeedIsIdempotent(t *testing.T) {
	users, s := setupTestUsers(t)
	require.NoError(t, users.Seed(context.Background(), "changed", "changed"))

	s.Read(func(d *store.Data) {
		require.Len(t, d.Users, 2)
		for _, u := range d.Users {
			assert.NotEqual(t, "admin123", u.PasswordHash)
			assert.NotEqual(t, "cocina123", u.PasswordHash)
		}
	})

	_, err := users.Authenticate("admin", "admin123", domain.RoleAdmin)
	assert.NoError(t, err)
	_, err = users.Authenticate("admin", "changed", domain.RoleAdmin)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate(t *testing.T) {
	users, _ := setupTestUsers(t)

	tests := []struct {
		name     string
		username string
		password string
		allowed  []domain.Role
		wantErr  bool
	}{
		{"admin on admin endpoint", "admin", "admin123", []domain.Role{domain.RoleAdmin}, false},
		{"admin on kitchen endpoint", "admin", "admin123", []domain.Role{domain.RoleKitchen, domain.RoleAdmin}, false},
		{"kitchen on kitchen endpoint", "cocina", "cocina123", []domain.Role{domain.RoleKitchen, domain.RoleAdmin}, false},
		{"kitchen on admin endpoint", "cocina", "cocina123", []domain.Role{domain.RoleAdmin}, true},
		{"wrong password", "admin", "nope", []domain.Role{domain.RoleAdmin}, true},
		{"unknown user", "ghost", "admin123", []domain.Role{domain.RoleAdmin}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := users.Authenticate(tt.username, tt.password, tt.allowed...)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCredentials)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.username, user.Username)
		})
	}
}

func TestServiceLogin(t *testing.T) {
	users, _ := setupTestUsers(t)
	auditor := &memoryAuditor{}
	svc := NewService(users, NewJWTManager(testJWTSecret, time.Hour), auditor)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "kitchen", "cocina", "cocina123", "/admin/tables", domain.RoleKitchen, domain.RoleAdmin)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, KitchenHome, sess.Redirect)
	assert.Equal(t, audit.ActionLoginSuccess, auditor.last().Action)
	assert.Equal(t, "cocina", auditor.last().Actor)

	_, err = svc.Login(ctx, "admin", "cocina", "cocina123", "", domain.RoleAdmin)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, audit.ActionLoginFailed, auditor.last().Action)
	assert.Equal(t, domain.ActorAnonymous, auditor.last().Actor)

	svc.Logout(ctx, &domain.Principal{Username: "cocina", Role: domain.RoleKitchen})
	assert.Equal(t, audit.ActionLogout, auditor.last().Action)
	assert.Equal(t, time.Hour, svc.SessionTTL())
}

func TestSafeRedirect(t *testing.T) {
	tests := []struct {
		returnTo string
		role     domain.Role
		want     string
	}{
		{"", domain.RoleAdmin, AdminHome},
		{"", domain.RoleKitchen, KitchenHome},
		{"/admin/menu", domain.RoleAdmin, "/admin/menu"},
		{"/admin/menu", domain.RoleKitchen, KitchenHome},
		{"/cocina", domain.RoleKitchen, "/cocina"},
		{"/menu.html", domain.RoleKitchen, "/menu.html"},
		{"/api/orders", domain.RoleAdmin, AdminHome},
		{"/app.js", domain.RoleAdmin, AdminHome},
		{"https://evil.example", domain.RoleAdmin, AdminHome},
		{"//evil.example", domain.RoleAdmin, AdminHome},
		{"/docs.v2/", domain.RoleAdmin, "/docs.v2/"},
		{"/cocina", "customer", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.returnTo+"_"+string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, SafeRedirect(tt.returnTo, tt.role))
		})
	}
}

func TestExtractJWTFromAuthHeader(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"", "", true},
		{"Basic abc", "", true},
		{"Bearer", "", true},
		{"Bearer ", "", true},
	}

	for _, tt := range tests {
		got, err := ExtractJWTFromAuthHeader(tt.header)
		if tt.wantErr {
			assert.Error(t, err, tt.header)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := TokenFromRequest(r)
	assert.ErrorIs(t, err, ErrNoToken)

	r.AddCookie(&http.Cookie{Name: CookieName, Value: "from-cookie"})
	got, err := TokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "from-cookie", got)

	r.Header.Set("Authorization", "Bearer from-header")
	got, err = TokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "from-header", got)
}

func TestSessionCookie(t *testing.T) {
	plain := httptest.NewRequest(http.MethodPost, "/login", nil)
	c := CreateSessionCookieForRequest("tok", time.Hour, plain)
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 3600, c.MaxAge)

	proxied := httptest.NewRequest(http.MethodPost, "/login", nil)
	proxied.Header.Set("X-Forwarded-Proto", "https")
	assert.True(t, CreateSessionCookieForRequest("tok", time.Hour, proxied).Secure)

	tlsReq := httptest.NewRequest(http.MethodPost, "/login", nil)
	tlsReq.TLS = &tls.ConnectionState{}
	c = CreateSessionCookieForRequest("tok", time.Hour, tlsReq)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)

	del := DeleteSessionCookie(plain)
	assert.Equal(t, -1, del.MaxAge)
	assert.Empty(t, del.Value)
}

func TestRequireRole(t *testing.T) {
	m := NewJWTManager(testJWTSecret, time.Hour)
	mw := NewMiddleware(m)

	var seen *domain.Principal
	handler := mw.RequireRole(domain.RoleKitchen, domain.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	adminOnly := mw.RequireRole(domain.RoleAdmin)(handler)

	kitchenToken, err := m.GenerateToken(&domain.User{Username: "cocina", Role: domain.RoleKitchen})
	require.NoError(t, err)

	tests := []struct {
		name    string
		handler http.Handler
		token   string
		cookie  bool
		want    int
	}{
		{"anonymous", handler, "", false, http.StatusUnauthorized},
		{"garbage token", handler, "garbage", false, http.StatusUnauthorized},
		{"kitchen via header", handler, kitchenToken, false, http.StatusNoContent},
		{"kitchen via cookie", handler, kitchenToken, true, http.StatusNoContent},
		{"kitchen on admin route", adminOnly, kitchenToken, false, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			r := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			if tt.token != "" {
				if tt.cookie {
					r.AddCookie(&http.Cookie{Name: CookieName, Value: tt.token})
				} else {
					r.Header.Set("Authorization", "Bearer "+tt.token)
				}
			}
			w := httptest.NewRecorder()
			tt.handler.ServeHTTP(w, r)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusNoContent {
				require.NotNil(t, seen)
				assert.Equal(t, "cocina", seen.Username)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	m := NewJWTManager(testJWTSecret, time.Hour)
	mw := NewMiddleware(m)

	var seen *domain.Principal
	h := mw.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Nil(t, seen)

	token, err := m.GenerateToken(&domain.User{Username: "admin", Role: domain.RoleAdmin})
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), r)
	require.NotNil(t, seen)
	assert.Equal(t, domain.RoleAdmin, seen.Role)
}
