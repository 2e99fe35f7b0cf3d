package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/dto"
	"fintrack/pkg/auth"

	"go.uber.org/zap"
)

func newTestAuthService() *AuthService {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	return NewAuthService(newMemUserRepo(), jwtManager, zap.NewNop())
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestAuthService()

	registered, err := s.Register(context.Background(), &dto.RegisterRequest{
		Username: "alex",
		Email:    "alex@example.com",
		Password: "hunter22",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if registered.AccessToken == "" || registered.RefreshToken == "" {
		t.Error("registration did not issue tokens")
	}
	if registered.User.Email != "alex@example.com" {
		t.Errorf("user email = %q", registered.User.Email)
	}

	logged, err := s.Login(context.Background(), &dto.LoginRequest{
		Email:    "alex@example.com",
		Password: "hunter22",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if logged.AccessToken == "" {
		t.Error("login did not issue a token")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := newTestAuthService()

	req := &dto.RegisterRequest{Username: "alex", Email: "alex@example.com", Password: "hunter22"}
	if _, err := s.Register(context.Background(), req); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := s.Register(context.Background(), req); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate register = %v, want ErrUserExists", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	s := newTestAuthService()

	if _, err := s.Register(context.Background(), &dto.RegisterRequest{
		Username: "alex", Email: "alex@example.com", Password: "hunter22",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err := s.Login(context.Background(), &dto.LoginRequest{Email: "alex@example.com", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}

	_, err = s.Login(context.Background(), &dto.LoginRequest{Email: "nobody@example.com", Password: "hunter22"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRefreshToken(t *testing.T) {
	s := newTestAuthService()

	registered, err := s.Register(context.Background(), &dto.RegisterRequest{
		Username: "alex", Email: "alex@example.com", Password: "hunter22",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	refreshed, err := s.RefreshToken(context.Background(), registered.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if refreshed.AccessToken == "" || refreshed.RefreshToken == "" {
		t.Error("refresh did not issue a new token pair")
	}

	if _, err := s.RefreshToken(context.Background(), "garbage.token.here"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("garbage refresh = %v, want ErrInvalidCredentials", err)
	}
}
