package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alphaexam/alphaexam-backend/internal/config"
	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// TokenType distinguishes identity-provider tokens from back-office tokens.
type TokenType string

const (
	TokenTypeUser  TokenType = ""
	TokenTypeAdmin TokenType = "admin"
)

// identityTTL bounds how long a subject → user mapping is cached.
const identityTTL = 10 * time.Minute

// Claims extends JWT standard claims with the profile fields the identity
// provider includes and the back-office marker.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType  `json:"token_type,omitempty"`
	Email     string     `json:"email,omitempty"`
	Name      string     `json:"name,omitempty"`
	Role      model.Role `json:"role,omitempty"`
}

// Identity is the authenticated caller as seen by handlers.
type Identity struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   model.Role `json:"role"`
}

// IsAdmin reports whether the caller may use the back-office.
func (i Identity) IsAdmin() bool {
	return i.Role == model.RoleAdmin
}

// AuthService verifies tokens, mirrors identity-provider users and handles
// local admin login.
type AuthService struct {
	cfg      *config.Config
	userRepo *repository.UserRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, userRepo *repository.UserRepository, rdb *redis.Client, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:      cfg,
		userRepo: userRepo,
		rdb:      rdb,
		log:      log.With().Str("component", "auth_service").Logger(),
	}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// AdminLogin authenticates a back-office account and issues its token.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (*model.AdminLoginResponse, error) {
	admin, err := s.userRepo.GetAdminByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	if err := s.CheckPassword(admin.PasswordHash, password); err != nil {
		return nil, err
	}

	token, err := s.GenerateAdminToken(admin)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("admin_id", admin.ID.String()).Msg("Admin logged in")
	return &model.AdminLoginResponse{Token: token, Admin: *admin}, nil
}

// GenerateAdminToken creates a back-office JWT for admin.
func (s *AuthService) GenerateAdminToken(admin *model.User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   admin.ID.String(),
			Issuer:    s.cfg.JWTIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: TokenTypeAdmin,
		Email:     admin.Email,
		Name:      admin.Name,
		Role:      model.RoleAdmin,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.JWTIssuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Resolve maps verified claims to a local identity. Back-office tokens carry
// the user id directly; identity-provider subjects are mirrored into users
// on first sight and cached in Redis.
func (s *AuthService) Resolve(ctx context.Context, claims *Claims) (*Identity, error) {
	if claims.TokenType == TokenTypeAdmin {
		id, err := uuid.Parse(claims.Subject)
		if err != nil {
			return nil, ErrInvalidToken
		}
		return &Identity{UserID: id, Role: model.RoleAdmin}, nil
	}

	key := config.CacheKey.UserIdentityKey(claims.Subject)
	if raw, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		var ident Identity
		if json.Unmarshal(raw, &ident) == nil {
			return &ident, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Identity cache read failed")
	}

	user, err := s.userRepo.UpsertExternal(ctx, claims.Subject, claims.Email, claims.Name)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	ident := &Identity{UserID: user.ID, Role: user.Role}

	if raw, err := json.Marshal(ident); err == nil {
		if err := s.rdb.Set(ctx, key, raw, identityTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Identity cache write failed")
		}
	}
	return ident, nil
}

// Me returns the caller's profile.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}
