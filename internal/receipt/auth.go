package receipt

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	sessionCookieName = "receipt_session"
	// LocalUser is the identity used when no credentials are configured
	LocalUser = "local"
)

// BasicAuth holds the configured login credentials
type BasicAuth struct {
	Username string
	Password string
}

// Auth signs users in with the configured credentials and tracks them with a signed cookie.
// HTTP basic auth is accepted as well for API clients.
type Auth struct {
	credentials BasicAuth
	secret      []byte
	ttl         time.Duration
	now         func() time.Time
}

// NewAuth creates an Auth. With an empty secret a random one is generated,
// so sessions do not survive a restart.
func NewAuth(credentials BasicAuth, secret string, ttl time.Duration) (*Auth, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generating session secret: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Auth{
		credentials: credentials,
		secret:      key,
		ttl:         ttl,
		now:         time.Now,
	}, nil
}

// Enabled reports whether any credentials are configured
func (a *Auth) Enabled() bool {
	return a.credentials.Username != "" || a.credentials.Password != ""
}

// CheckCredentials compares a username and password against the configured pair
func (a *Auth) CheckCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.credentials.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.credentials.Password)) == 1
	return userOK && passOK
}

// IssueToken returns a signed session token for user
func (a *Auth) IssueToken(user string) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   user,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ParseToken validates a session token and returns its user
func (a *Auth) ParseToken(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return "", fmt.Errorf("parsing session token: %w", err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("session token has no subject")
	}
	return claims.Subject, nil
}

// Authenticate resolves the user behind a request
func (a *Auth) Authenticate(r *http.Request) (string, bool) {
	if !a.Enabled() {
		return LocalUser, true
	}

	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if user, err := a.ParseToken(cookie.Value); err == nil {
			return user, true
		}
	}

	if username, password, ok := r.BasicAuth(); ok && a.CheckCredentials(username, password) {
		return username, true
	}
	return "", false
}

// sessionCookie builds the cookie carrying a session token
func (a *Auth) sessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  a.now().Add(a.ttl),
	}
}

// expiredSessionCookie clears the session cookie
func expiredSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	}
}

type userContextKey struct{}

func withUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the authenticated user stored on the request context
func UserFromContext(ctx context.Context) string {
	user, _ := ctx.Value(userContextKey{}).(string)
	return user
}
