package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const passwordCost = 12

type SignupCommand struct {
	Name     string
	Email    string
	Password string
}

type LoginCommand struct {
	Email    string
	Password string
}

type AuthResult struct {
	User  User
	Token string
}

func (u Usecase) Signup(ctx context.Context, cmd SignupCommand) (AuthResult, error) {
	const (
		exists = "User exists already, please login instead."
		failed = "Signing up failed, please try again later."
	)

	email := strings.ToLower(strings.TrimSpace(cmd.Email))

	_, err := u.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return AuthResult{}, NewError(KindValidation, CodeUserExists, exists, nil)
	case KindOf(err) != KindNotFound:
		u.logFailure(ctx, "Signup.GetUserByEmail", err)
		return AuthResult{}, surface(err, failed, failed)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), passwordCost)
	if err != nil {
		return AuthResult{}, NewError(KindUnavailable, "unavailable", "Could not create user, please try again.", err)
	}

	user, err := u.repo.CreateUser(ctx, User{
		ID:           uuid.New(),
		Name:         cmd.Name,
		Email:        email,
		PasswordHash: string(hash),
		Places:       []uuid.UUID{},
	})
	if err != nil {
		// a concurrent signup took the email between the lookup and the insert
		var e *Error
		if errors.As(err, &e) && e.Code == CodeUserExists {
			return AuthResult{}, NewError(KindValidation, CodeUserExists, exists, err)
		}
		u.logFailure(ctx, "Signup.CreateUser", err)
		return AuthResult{}, surface(err, failed, failed)
	}

	token, err := u.identity.IssueToken(user.ID)
	if err != nil {
		return AuthResult{}, NewError(KindUnavailable, "unavailable", failed, err)
	}

	u.logger.InfoContext(ctx, "user signed up", slog.String("user_id", user.ID.String()))
	user.PasswordHash = ""
	return AuthResult{User: user, Token: token}, nil
}

func (u Usecase) Login(ctx context.Context, cmd LoginCommand) (AuthResult, error) {
	const (
		invalid = "Invalid credentials, could not log you in."
		failed  = "Logging in failed, please try again later."
	)

	user, err := u.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(cmd.Email)))
	if err != nil {
		if KindOf(err) == KindNotFound {
			return AuthResult{}, NewError(KindForbidden, "invalid_credentials", invalid, nil)
		}
		u.logFailure(ctx, "Login.GetUserByEmail", err)
		return AuthResult{}, surface(err, invalid, failed)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(cmd.Password)); err != nil {
		return AuthResult{}, NewError(KindForbidden, "invalid_credentials", invalid, nil)
	}

	token, err := u.identity.IssueToken(user.ID)
	if err != nil {
		return AuthResult{}, NewError(KindUnavailable, "unavailable", failed, err)
	}

	user.PasswordHash = ""
	return AuthResult{User: user, Token: token}, nil
}

// VerifyToken is used by the auth middleware.
func (u Usecase) VerifyToken(_ context.Context, token string) (uuid.UUID, error) {
	id, err := u.identity.VerifyToken(token)
	if err != nil {
		return uuid.Nil, NewError(KindUnauthorized, "invalid_token", "Authentication failed!", err)
	}
	return id, nil
}
