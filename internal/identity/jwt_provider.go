package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/placeshare/placeshare/internal/config"
)

const issuer = "placeshare"

// JWTProvider issues and verifies HS256 session tokens.
// implements usecase.IdentityProvider
type JWTProvider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func New(secret string, ttl time.Duration) *JWTProvider {
	return &JWTProvider{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func NewFromEnv() (*JWTProvider, error) {
	secret := config.GetEnv(config.ENV_KEY_JWT_SECRET, "")
	if secret == "" {
		return nil, fmt.Errorf("%s is required", config.ENV_KEY_JWT_SECRET)
	}
	return New(secret, config.GetEnvDuration(config.ENV_KEY_JWT_TTL, time.Hour)), nil
}

func (p *JWTProvider) IssueToken(userID uuid.UUID) (string, error) {
	now := p.now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

func (p *JWTProvider) VerifyToken(token string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return p.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return uuid.Nil, err
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, errors.New("token subject is not a user id")
	}
	return id, nil
}
