package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/xid"

	"github.com/sakif/rilmas/internal/apperror"
	"github.com/sakif/rilmas/internal/auth"
	"github.com/sakif/rilmas/internal/model"
	"github.com/sakif/rilmas/internal/storage"
)

// Login defaults.
const (
	DefaultCodeTTL        = 10 * time.Minute
	DefaultCodeLength     = 6
	DefaultMinPhoneLength = 10
)

// AuthConfig tunes the phone login. Zero fields take the defaults above.
type AuthConfig struct {
	CodeTTL        time.Duration
	CodeLength     int
	MinPhoneLength int
}

// AuthService simulates phone login: a one-time code is "sent" (returned to
// the caller, there is no SMS gateway) and exchanging it logs the device in.
//
// DEPENDENCIES:
//   - repo     → pending verification record and the device user
//   - session  → CompleteAuth (persist user, reconcile held invite, listeners)
//   - tokens   → session cookie JWT
//   - codes    → bcrypt hashing of the one-time code
type AuthService struct {
	repo     *storage.Repository
	session  *SessionService
	tokens   *auth.TokenService
	codes    *auth.CodeHasher
	validate *validator.Validate
	phones   phoneRule
	logger   *slog.Logger

	cfg AuthConfig
	now func() time.Time
}

func NewAuthService(
	repo *storage.Repository,
	session *SessionService,
	tokens *auth.TokenService,
	codes *auth.CodeHasher,
	cfg AuthConfig,
	logger *slog.Logger,
) *AuthService {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = DefaultCodeTTL
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = DefaultCodeLength
	}
	if cfg.MinPhoneLength <= 0 {
		cfg.MinPhoneLength = DefaultMinPhoneLength
	}

	return &AuthService{
		repo:     repo,
		session:  session,
		tokens:   tokens,
		codes:    codes,
		validate: validator.New(),
		phones:   newPhoneRule(cfg.MinPhoneLength),
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// CodeRequest is what RequestCode hands back. Code is the plain one-time
// code; a real deployment would send it by SMS instead of returning it.
type CodeRequest struct {
	Phone     string    `json:"phone"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthResult bundles the logged in user and the signed session token so the
// handler can set the cookie and respond in one step.
type AuthResult struct {
	User        model.User    `json:"user"`
	Token       string        `json:"-"`
	AddedFriend *model.Friend `json:"addedFriend,omitempty"`
}

// RequestCode starts a login for phone. A new request replaces any earlier
// pending one, so only the latest code works.
func (s *AuthService) RequestCode(ctx context.Context, phone string) (CodeRequest, error) {
	phone = strings.TrimSpace(phone)
	if err := s.phones.check(phone); err != nil {
		return CodeRequest{}, err
	}

	code, err := auth.GenerateCode(s.cfg.CodeLength)
	if err != nil {
		return CodeRequest{}, fmt.Errorf("service/auth: generating code: %w", err)
	}
	hash, err := s.codes.Hash(code)
	if err != nil {
		return CodeRequest{}, fmt.Errorf("service/auth: hashing code: %w", err)
	}

	pending := model.PendingVerification{
		Phone:     phone,
		CodeHash:  hash,
		ExpiresAt: s.now().Add(s.cfg.CodeTTL),
	}
	if err := s.repo.SetPendingVerification(ctx, pending); err != nil {
		return CodeRequest{}, fmt.Errorf("service/auth: saving pending verification: %w", err)
	}

	s.logger.Info("verification code issued",
		slog.String("phone", maskPhone(phone)),
		slog.Time("expiresAt", pending.ExpiresAt),
	)

	return CodeRequest{Phone: phone, Code: code, ExpiresAt: pending.ExpiresAt}, nil
}

// Verify exchanges code for a login.
//
// The pending record must exist, belong to phone, be unexpired and match
// code. On success it is cleared. A user already stored for the same phone
// keeps its userId and profile; otherwise a new user is created.
func (s *AuthService) Verify(ctx context.Context, phone, code string) (*AuthResult, error) {
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)

	if err := s.phones.check(phone); err != nil {
		return nil, err
	}
	if err := s.validate.Var(code, "required,numeric,len="+strconv.Itoa(s.cfg.CodeLength)); err != nil {
		return nil, apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d digits", s.cfg.CodeLength))
	}

	pending, ok, err := s.repo.GetPendingVerification(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/auth: loading pending verification: %w", err)
	}
	if !ok || pending.Phone != phone {
		return nil, apperror.ValidationFailed("phone", "no code was requested for this phone")
	}
	if pending.Expired(s.now()) {
		if err := s.repo.ClearPendingVerification(ctx); err != nil {
			return nil, fmt.Errorf("service/auth: clearing expired verification: %w", err)
		}
		return nil, apperror.ValidationFailed("code", "code expired, request a new one")
	}
	if err := s.codes.Verify(pending.CodeHash, code); err != nil {
		if errors.Is(err, auth.ErrCodeMismatch) {
			s.logger.Warn("wrong verification code", slog.String("phone", maskPhone(phone)))
			return nil, apperror.ValidationFailed("code", "wrong code")
		}
		return nil, fmt.Errorf("service/auth: checking code: %w", err)
	}

	if err := s.repo.ClearPendingVerification(ctx); err != nil {
		return nil, fmt.Errorf("service/auth: clearing verification: %w", err)
	}

	user, err := s.userForPhone(ctx, phone)
	if err != nil {
		return nil, err
	}

	friend, err := s.session.CompleteAuth(ctx, user)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(user.UserID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.UserID, err)
	}

	return &AuthResult{User: user, Token: token, AddedFriend: friend}, nil
}

// userForPhone returns the stored user when it has this phone, or a fresh one.
func (s *AuthService) userForPhone(ctx context.Context, phone string) (model.User, error) {
	existing, ok, err := s.repo.GetUser(ctx)
	if err != nil {
		return model.User{}, fmt.Errorf("service/auth: loading user: %w", err)
	}
	if ok && existing.Phone == phone {
		return existing, nil
	}
	return model.User{
		Phone:  phone,
		UserID: xid.New().String(),
	}, nil
}

// maskPhone keeps the last 4 characters for logs.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
