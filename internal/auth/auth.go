package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const tokenTTL = 24 * time.Hour

// Service issues and verifies access tokens against the accounts table.
type Service struct {
	db     *pgxpool.Pool
	log    *slog.Logger
	secret []byte
}

func NewService(db *pgxpool.Pool, logger *slog.Logger, secret string) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, log: logger, secret: []byte(secret)}
}

type Session struct {
	AccountID   int64  `json:"account_id"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type claims struct {
	AccountID int64 `json:"account_id"`
	jwt.RegisteredClaims
}

func (s *Service) SignUp(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return Session{}, fmt.Errorf("a valid email is required")
	}
	if len(password) < 8 {
		return Session{}, fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, err
	}

	var accountID int64
	err = s.db.QueryRow(ctx, `
		INSERT INTO users.accounts (email, password_hash)
		VALUES ($1, $2)
		RETURNING id
	`, email, string(hash)).Scan(&accountID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return Session{}, ErrEmailTaken
		}
		return Session{}, err
	}

	s.log.Info("account created", "account_id", accountID)
	return s.issueSession(accountID, email)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var accountID int64
	var hash string
	err := s.db.QueryRow(ctx, `
		SELECT id, password_hash FROM users.accounts WHERE email = $1
	`, email).Scan(&accountID, &hash)
	if err == pgx.ErrNoRows {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.issueSession(accountID, email)
}

func (s *Service) issueSession(accountID int64, email string) (Session, error) {
	now := time.Now()
	c := claims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return Session{}, err
	}
	return Session{
		AccountID:   accountID,
		Email:       email,
		AccessToken: token,
		ExpiresIn:   int64(tokenTTL.Seconds()),
	}, nil
}

// VerifyAccessToken parses and validates a bearer token, returning the
// account it belongs to.
func (s *Service) VerifyAccessToken(tokenStr string) (int64, string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return 0, "", ErrInvalidToken
	}
	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.AccountID == 0 {
		return 0, "", ErrInvalidToken
	}
	return c.AccountID, c.Subject, nil
}
