package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lewisian8787/wrestleguess/models"
)

// DefaultTokenExpiry matches the 30 day session of the web client
const DefaultTokenExpiry = 30 * 24 * time.Hour

const tokenIssuer = "wrestleguess"

// AuthService handles authentication operations
type AuthService struct {
	userRepo    UserRepository
	jwtSecret   []byte
	tokenExpiry time.Duration
	now         func() time.Time
}

// JWTClaims represents the claims in our JWT token
type JWTClaims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// NewAuthService creates a new authentication service
func NewAuthService(userRepo UserRepository, jwtSecret string) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		jwtSecret:   []byte(jwtSecret),
		tokenExpiry: DefaultTokenExpiry,
		now:         time.Now,
	}
}

// Login authenticates a user and returns a JWT token
func (a *AuthService) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	user, err := a.userRepo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	token, err := a.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &models.AuthResponse{
		User:  user.ToSafeUser(),
		Token: token,
	}, nil
}

// GenerateToken creates a new JWT token for the user
func (a *AuthService) GenerateToken(user *models.User) (string, error) {
	now := a.now()
	claims := JWTClaims{
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// ValidateToken validates a JWT token and returns the claims
func (a *AuthService) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return a.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// GetUserFromToken validates token and returns the user it was issued to
func (a *AuthService) GetUserFromToken(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := a.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := a.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", claims.UserID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s no longer exists", ErrInvalidToken, claims.UserID)
	}
	return user, nil
}
