package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/linkpulse/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	defaultTokenTTL = 60 * time.Minute
	tokenIssuer     = "linkpulse"
)

// TokenClaims is the JWT body. Subject holds the numeric user id.
type TokenClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// RegisterInput carries a new account. Role is not accepted from callers; admins are
// provisioned from configuration.
type RegisterInput struct {
	Username  string `validate:"min=8,max=32"`
	Firstname string `validate:"min=1,max=32"`
	Lastname  string `validate:"min=1,max=32"`
	Password  string `validate:"min=12,max=128"`
}

// AuthService is the access gateway: it verifies credentials, issues bearer tokens
// and turns tokens back into an Identity.
type AuthService struct {
	db     *gorm.DB
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthService creates an AuthService signing HS256 tokens with secret.
func NewAuthService(gdb *gorm.DB, secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &AuthService{
		db:     gdb,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock overrides the time source used for token timestamps.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Register creates a regular user with a bcrypt password hash.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*db.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Firstname = strings.TrimSpace(input.Firstname)
	input.Lastname = strings.TrimSpace(input.Lastname)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	hashed, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := db.User{
		Username:  input.Username,
		Firstname: input.Firstname,
		Lastname:  input.Lastname,
		Password:  hashed,
		Role:      db.RoleUser,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrUsernameTaken
		}
		if err := tx.Create(&user).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrUsernameTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, storageError(err, nil)
	}
	return &user, nil
}

// Authenticate checks a username/password pair.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*db.User, error) {
	var user db.User
	if err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storageError(err, nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// IssueToken signs a bearer token for user and returns it with its expiry.
func (s *AuthService) IssueToken(user db.User) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)

	claims := TokenClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken validates a bearer token and resolves the user it was issued to.
// The role comes from storage, so a demoted admin loses privileges immediately.
func (s *AuthService) ParseToken(ctx context.Context, token string) (Identity, error) {
	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, ErrInvalidToken
	}
	if !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || userID == 0 {
		return Identity{}, ErrInvalidToken
	}
	return s.IdentityFor(ctx, uint(userID))
}

// IdentityFor loads the identity of an existing user, e.g. from a cookie session.
func (s *AuthService) IdentityFor(ctx context.Context, userID uint) (Identity, error) {
	var user db.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, fmt.Errorf("%w: user not found", ErrUnauthenticated)
		}
		return Identity{}, storageError(err, nil)
	}
	return identityFromUser(user), nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
