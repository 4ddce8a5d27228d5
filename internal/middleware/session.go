// Package middleware holds the fiber middleware in front of the API: session
// tokens, role checks, rate limiting and the maintenance gate.
package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"

	sessionKey = "session"
)

// ErrInvalidToken is returned when a bearer token cannot be verified.
var ErrInvalidToken = errors.New("invalid session token")

// Session is the authenticated caller attached to a request.
type Session struct {
	ID   string
	Role string
}

// IsAdmin reports whether the session has the admin role.
func (s *Session) IsAdmin() bool {
	return s != nil && strings.EqualFold(s.Role, RoleAdmin)
}

// Claims are the JWT claims of a session token. The subject is the session id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies HS256 session tokens.
type Authenticator struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthenticator creates an Authenticator signing with secret.
func NewAuthenticator(secret, issuer string, ttl time.Duration) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// IssueToken signs a token for the session id and role.
func (a *Authenticator) IssueToken(id, role string) (string, error) {
	now := a.now().UTC()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse verifies token and returns its session.
func (a *Authenticator) Parse(token string) (*Session, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Session{ID: claims.Subject, Role: claims.Role}, nil
}

// Authenticate rejects requests without a valid bearer token and stores the
// session in the request locals.
func (a *Authenticator) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return reject(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		}

		session, err := a.Parse(token)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Path()).Msg("session token rejected")
			return reject(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		}

		c.Locals(sessionKey, session)
		return c.Next()
	}
}

// RequireRole lets the request through only when the session has one of roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := SessionFrom(c)
		if !ok {
			return reject(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		}
		for _, role := range roles {
			if strings.EqualFold(session.Role, role) {
				return c.Next()
			}
		}
		return reject(c, fiber.StatusForbidden, "FORBIDDEN", "forbidden")
	}
}

// SessionFrom returns the session stored by Authenticate.
func SessionFrom(c *fiber.Ctx) (*Session, bool) {
	session, ok := c.Locals(sessionKey).(*Session)
	return session, ok && session != nil
}

// WithSession stores session in the request locals. Used by tests and by
// callers that authenticate by other means.
func WithSession(session *Session) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(sessionKey, session)
		return c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func reject(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message, "code": code})
}
