package usecase_test

import (
	"context"
	"testing"

	"github.com/placeshare/placeshare/internal/usecase"
)

func TestSignupAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.uc.Signup(ctx, usecase.SignupCommand{
		Name:     "Max",
		Email:    " Max@Test.com ",
		Password: "supersecret",
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if res.User.Email != "max@test.com" {
		t.Fatalf("expected normalised email, got %q", res.User.Email)
	}
	if res.User.PasswordHash != "" {
		t.Fatalf("password hash leaked")
	}
	if res.Token != "tok-"+res.User.ID.String() {
		t.Fatalf("unexpected token %q", res.Token)
	}

	stored, _ := f.repo.user(res.User.ID)
	if stored.PasswordHash == "" || stored.PasswordHash == "supersecret" {
		t.Fatalf("password not hashed: %q", stored.PasswordHash)
	}
	if stored.Places == nil || len(stored.Places) != 0 {
		t.Fatalf("expected empty place list, got %v", stored.Places)
	}

	_, err = f.uc.Signup(ctx, usecase.SignupCommand{Name: "Max", Email: "max@test.com", Password: "another"})
	ue := wantKind(t, err, usecase.KindValidation)
	if ue.Message != "User exists already, please login instead." {
		t.Fatalf("unexpected message %q", ue.Message)
	}

	login, err := f.uc.Login(ctx, usecase.LoginCommand{Email: "max@test.com", Password: "supersecret"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.ID != res.User.ID {
		t.Fatalf("logged in as %s, want %s", login.User.ID, res.User.ID)
	}

	for _, cmd := range []usecase.LoginCommand{
		{Email: "max@test.com", Password: "wrong"},
		{Email: "nobody@test.com", Password: "supersecret"},
	} {
		_, err := f.uc.Login(ctx, cmd)
		ue := wantKind(t, err, usecase.KindForbidden)
		if ue.Message != "Invalid credentials, could not log you in." {
			t.Fatalf("unexpected message %q", ue.Message)
		}
	}
}

func TestSignupEmailTakenConcurrently(t *testing.T) {
	f := newFixture(t)
	f.repo.fail = failOn("CreateUser",
		usecase.NewError(usecase.KindValidation, usecase.CodeUserExists, "email already registered", nil))

	_, err := f.uc.Signup(context.Background(), usecase.SignupCommand{Name: "Max", Email: "max@test.com", Password: "supersecret"})
	ue := wantKind(t, err, usecase.KindValidation)
	if ue.Message != "User exists already, please login instead." {
		t.Fatalf("unexpected message %q", ue.Message)
	}
}

func TestVerifyToken(t *testing.T) {
	f := newFixture(t)
	user := f.repo.addUser("max")

	id, err := f.uc.VerifyToken(context.Background(), "tok-"+user.ID.String())
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if id != user.ID {
		t.Fatalf("expected %s, got %s", user.ID, id)
	}

	_, err = f.uc.VerifyToken(context.Background(), "garbage")
	wantKind(t, err, usecase.KindUnauthorized)
}

func TestListUsersHidesPasswords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.uc.Signup(ctx, usecase.SignupCommand{Name: "Max", Email: "max@test.com", Password: "supersecret"}); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	users, err := f.uc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 || users[0].PasswordHash != "" {
		t.Fatalf("unexpected users %+v", users)
	}

	f.repo.fail = failOn("ListUsers", unavailableErr())
	_, err = f.uc.ListUsers(ctx)
	wantKind(t, err, usecase.KindUnavailable)
}
