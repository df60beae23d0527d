package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/bodycount/backend/internal/config"
	"github.com/bodycount/backend/internal/models"
)

// ErrDuplicateEmail is returned when registering with an email that already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrInvalidCredentials covers both an unknown email and a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

type Service interface {
	Register(ctx context.Context, email, password, displayName string) (*models.Profile, error)
	Login(ctx context.Context, email, password string) (*models.Profile, string, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
}

type service struct {
	repo            *Repository
	secret          []byte
	tokenTTL        time.Duration
	startingCredits int
}

func NewService(repo *Repository, cfg config.AuthConfig, startingCredits int) Service {
	return &service{
		repo:            repo,
		secret:          []byte(cfg.JWTSecret),
		tokenTTL:        cfg.TokenTTL,
		startingCredits: startingCredits,
	}
}

var _ Service = (*service)(nil)

func (s *service) Register(ctx context.Context, email, password, displayName string) (*models.Profile, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	profile, err := s.repo.Create(ctx, email, string(hash), displayName, s.startingCredits)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return profile, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*models.Profile, string, error) {
	profile, hash, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if profile == nil {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.issueToken(profile.ID)
	if err != nil {
		return nil, "", err
	}
	return profile, token, nil
}

func (s *service) issueToken(userID uuid.UUID) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(_ context.Context, token string) (uuid.UUID, error) {
	tok, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	claims, ok := tok.Claims.(*jwt.RegisteredClaims)
	if !ok || !tok.Valid {
		return uuid.Nil, errors.New("invalid token")
	}
	return uuid.Parse(claims.Subject)
}
