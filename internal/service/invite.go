package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sakif/rilmas/internal/apperror"
	"github.com/sakif/rilmas/internal/storage"
)

// InviteCodePrefix starts every invite code.
const InviteCodePrefix = "INV"

// InviteParam is the query parameter that carries an invite code.
const InviteParam = "invite"

// Invite is a freshly issued invite code and the link a friend opens.
type Invite struct {
	Code string `json:"code"`
	Link string `json:"link"`
}

// InviteService issues invite codes and resolves them back to their owner.
//
// CODE FORMAT:
//
//	"INV" + upper(base36(clock in nanoseconds))
//	e.g. INV18F3K2ZQ9W0HC
//
// The clock value alone is unique under normal clock behaviour. last guards
// the two cases where it is not: two calls inside the same clock tick, and a
// clock that steps backwards. Each code uses max(now, last+1), so codes from
// one process are strictly increasing.
type InviteService struct {
	repo    *storage.Repository
	baseURL *url.URL
	logger  *slog.Logger

	now  func() time.Time
	last atomic.Int64
}

// NewInviteService parses baseURL once; it must be absolute, e.g.
// "http://localhost:8080" or "https://rilmas.app/".
func NewInviteService(repo *storage.Repository, baseURL string, logger *slog.Logger) (*InviteService, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("service/invite: parsing base URL %q: %w", baseURL, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("service/invite: base URL %q must be absolute", baseURL)
	}

	return &InviteService{
		repo:    repo,
		baseURL: u,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// GenerateCode returns a new invite code. It persists nothing.
func (s *InviteService) GenerateCode() string {
	n := s.now().UnixNano()
	for {
		last := s.last.Load()
		if n <= last {
			n = last + 1
		}
		if s.last.CompareAndSwap(last, n) {
			break
		}
	}
	return InviteCodePrefix + strings.ToUpper(strconv.FormatInt(n, 36))
}

// Link returns the URL a friend opens to accept code.
func (s *InviteService) Link(code string) string {
	u := *s.baseURL
	q := u.Query()
	q.Set(InviteParam, code)
	u.RawQuery = q.Encode()
	return u.String()
}

// SaveInviteLink records code as issued by userID.
func (s *InviteService) SaveInviteLink(ctx context.Context, userID, code string) error {
	if err := s.repo.SaveInviteLink(ctx, userID, code); err != nil {
		return fmt.Errorf("service/invite: saving code %s: %w", code, err)
	}
	return nil
}

// CreateInvite generates a code for userID, saves the mapping and returns
// the code with its shareable link.
func (s *InviteService) CreateInvite(ctx context.Context, userID string) (Invite, error) {
	if userID == "" {
		return Invite{}, apperror.ValidationFailed("userId", "an invite needs a logged in user")
	}

	code := s.GenerateCode()
	if err := s.SaveInviteLink(ctx, userID, code); err != nil {
		return Invite{}, err
	}

	s.logger.Info("invite created",
		slog.String("userID", userID),
		slog.String("code", code),
	)

	return Invite{Code: code, Link: s.Link(code)}, nil
}

// Resolve returns the userId that issued code. Unknown and blank codes
// resolve to ("", false, nil).
func (s *InviteService) Resolve(ctx context.Context, code string) (string, bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", false, nil
	}

	userID, ok, err := s.repo.GetUserByInviteCode(ctx, code)
	if err != nil {
		return "", false, fmt.Errorf("service/invite: resolving code %s: %w", code, err)
	}
	return userID, ok, nil
}
