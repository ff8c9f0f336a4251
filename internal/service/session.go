// Package service holds the business rules of the app.
//
// LAYERS:
//
//	Handler (HTTP)      → parses requests, writes responses
//	Service (this)      → validates, enforces rules, orchestrates
//	storage.Repository  → typed records over a repository.Store
//
// Services never see HTTP and never see the byte-level store. They return
// apperror values for anything the caller did wrong and wrapped errors for
// store failures.
//
// THE DEPENDENCY CHAIN:
//
//	server.New builds: Store → Repository → Invite → Session → Auth, Chat
//	At runtime:        Handler → Service → Repository → Store
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/sakif/rilmas/internal/apperror"
	"github.com/sakif/rilmas/internal/model"
	"github.com/sakif/rilmas/internal/storage"
)

// SessionState classifies a start against the invite in its navigation context.
type SessionState string

const (
	NoInviteContext              SessionState = "no_invite"
	InvitePresentUnauthenticated SessionState = "invite_unauthenticated"
	InvitePresentAuthenticated   SessionState = "invite_authenticated"
)

// Phase is the screen the app should show.
type Phase string

const (
	PhaseSplash Phase = "splash"
	PhaseAuth   Phase = "auth"
	PhaseMain   Phase = "main"
)

// DefaultSplash is how long the splash screen shows after start.
const DefaultSplash = 2 * time.Second

// InviteFriendLastSeen is the placeholder lastSeen of invite-created friends.
const InviteFriendLastSeen = "recently"

// Bootstrap is the outcome of Start.
//
// AddedFriend is set only when the invite added someone to the friend list.
// StripInvite tells the caller to drop the invite parameter from the
// navigation context so a refresh does not process it again.
type Bootstrap struct {
	State       SessionState  `json:"state"`
	User        *model.User   `json:"user,omitempty"`
	AddedFriend *model.Friend `json:"addedFriend,omitempty"`
	Phase       Phase         `json:"phase"`
	StripInvite bool          `json:"stripInvite"`
}

// UserListener is called with the user after login or a profile change.
type UserListener func(ctx context.Context, user model.User)

// SessionService owns the device session: who is logged in, the invite that
// is waiting for a login, and the listeners interested in either.
//
// STATE MACHINE (decided on every Start):
//
//	no invite param                    → NoInviteContext
//	invite param, nobody logged in     → InvitePresentUnauthenticated
//	                                      (code held until CompleteAuth)
//	invite param, user logged in       → InvitePresentAuthenticated
//	                                      (reconciled immediately)
type SessionService struct {
	repo    *storage.Repository
	invites *InviteService
	logger  *slog.Logger

	phones    phoneRule
	splash    time.Duration
	startedAt time.Time
	now       func() time.Time
	online    func() bool

	mu            sync.Mutex
	pendingInvite string
	onAuth        []UserListener
	onUpdateUser  []UserListener
}

// NewSessionService starts the splash clock. A non-positive splash uses
// DefaultSplash and a non-positive minPhoneLength DefaultMinPhoneLength.
func NewSessionService(
	repo *storage.Repository,
	invites *InviteService,
	splash time.Duration,
	minPhoneLength int,
	logger *slog.Logger,
) *SessionService {
	if splash <= 0 {
		splash = DefaultSplash
	}
	now := time.Now
	return &SessionService{
		repo:      repo,
		invites:   invites,
		logger:    logger,
		phones:    newPhoneRule(minPhoneLength),
		splash:    splash,
		startedAt: now(),
		now:       now,
		online:    func() bool { return rand.IntN(2) == 0 },
	}
}

// OnAuth registers fn to run after every successful login.
func (s *SessionService) OnAuth(fn UserListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAuth = append(s.onAuth, fn)
}

// OnUpdateUser registers fn to run after every profile change.
func (s *SessionService) OnUpdateUser(fn UserListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdateUser = append(s.onUpdateUser, fn)
}

// Start loads the device user and processes inviteCode, which is the raw
// invite parameter of the navigation context ("" when absent).
func (s *SessionService) Start(ctx context.Context, inviteCode string) (Bootstrap, error) {
	inviteCode = strings.TrimSpace(inviteCode)

	user, loggedIn, err := s.repo.GetUser(ctx)
	if err != nil {
		return Bootstrap{}, fmt.Errorf("service/session: loading user: %w", err)
	}

	b := Bootstrap{
		State: NoInviteContext,
		Phase: s.phaseAt(s.now(), loggedIn),
	}
	if loggedIn {
		b.User = &user
	}

	if inviteCode == "" {
		return b, nil
	}
	b.StripInvite = true

	if !loggedIn {
		s.mu.Lock()
		s.pendingInvite = inviteCode
		s.mu.Unlock()

		s.logger.Info("invite held until login", slog.String("code", inviteCode))
		b.State = InvitePresentUnauthenticated
		return b, nil
	}

	b.State = InvitePresentAuthenticated
	friend, err := s.Reconcile(ctx, user, inviteCode)
	if err != nil {
		return Bootstrap{}, err
	}
	b.AddedFriend = friend
	return b, nil
}

// Reconcile turns an invite code into a friend of user.
//
// It returns the added friend, or nil when there was nothing to do: the code
// is unknown, it is user's own code, or the inviter is already a friend.
// Replaying a code is therefore a no-op.
func (s *SessionService) Reconcile(ctx context.Context, user model.User, code string) (*model.Friend, error) {
	inviterID, ok, err := s.invites.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Info("ignoring unknown invite", slog.String("code", code))
		return nil, nil
	}
	if inviterID == user.UserID {
		s.logger.Info("ignoring own invite",
			slog.String("code", code),
			slog.String("userID", user.UserID),
		)
		return nil, nil
	}

	friend := model.Friend{
		ID:       inviterID,
		Name:     "User " + lastN(inviterID, 4),
		Online:   s.online(),
		LastSeen: InviteFriendLastSeen,
	}

	added, err := s.repo.AddFriendIfAbsent(ctx, friend)
	if err != nil {
		return nil, fmt.Errorf("service/session: adding friend %s: %w", inviterID, err)
	}
	if !added {
		return nil, nil
	}

	s.logger.Info("friend added from invite",
		slog.String("userID", user.UserID),
		slog.String("friendID", inviterID),
	)
	return &friend, nil
}

// PendingInvite returns the invite code waiting for a login, if any.
func (s *SessionService) PendingInvite() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingInvite
}

// CompleteAuth persists user as the device user, reconciles the held invite
// and then runs the OnAuth listeners. The held invite is consumed even when
// it turns out to be unknown.
func (s *SessionService) CompleteAuth(ctx context.Context, user model.User) (*model.Friend, error) {
	if err := s.repo.SetUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/session: saving user %s: %w", user.UserID, err)
	}

	s.mu.Lock()
	code := s.pendingInvite
	s.pendingInvite = ""
	listeners := append([]UserListener(nil), s.onAuth...)
	s.mu.Unlock()

	var friend *model.Friend
	if code != "" {
		var err error
		friend, err = s.Reconcile(ctx, user, code)
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("user logged in", slog.String("userID", user.UserID))

	for _, fn := range listeners {
		fn(ctx, user)
	}
	return friend, nil
}

// CurrentUser returns the device user or an apperror.ErrNotFound.
func (s *SessionService) CurrentUser(ctx context.Context) (model.User, error) {
	user, ok, err := s.repo.GetUser(ctx)
	if err != nil {
		return model.User{}, fmt.Errorf("service/session: loading user: %w", err)
	}
	if !ok {
		return model.User{}, apperror.NotFound("user", "")
	}
	return user, nil
}

// UpdateProfile merges patch over the device user and runs the
// OnUpdateUser listeners with the result.
func (s *SessionService) UpdateProfile(ctx context.Context, patch model.UserPatch) (model.User, error) {
	if patch.Phone != nil {
		phone := strings.TrimSpace(*patch.Phone)
		if err := s.phones.check(phone); err != nil {
			return model.User{}, err
		}
		patch.Phone = &phone
	}

	user, ok, err := s.repo.UpdateUser(ctx, patch)
	if err != nil {
		return model.User{}, fmt.Errorf("service/session: updating user: %w", err)
	}
	if !ok {
		return model.User{}, apperror.NotFound("user", "")
	}

	s.mu.Lock()
	listeners := append([]UserListener(nil), s.onUpdateUser...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, user)
	}
	return user, nil
}

// Logout removes the device user and drops any held invite.
// Friends, chats and invite links stay on the device.
func (s *SessionService) Logout(ctx context.Context) error {
	if err := s.repo.RemoveUser(ctx); err != nil {
		return fmt.Errorf("service/session: removing user: %w", err)
	}

	s.mu.Lock()
	s.pendingInvite = ""
	s.mu.Unlock()

	s.logger.Info("user logged out")
	return nil
}

// Phase returns the screen to show at now.
func (s *SessionService) Phase(ctx context.Context, now time.Time) (Phase, error) {
	_, loggedIn, err := s.repo.GetUser(ctx)
	if err != nil {
		return "", fmt.Errorf("service/session: loading user: %w", err)
	}
	return s.phaseAt(now, loggedIn), nil
}

func (s *SessionService) phaseAt(now time.Time, loggedIn bool) Phase {
	switch {
	case now.Sub(s.startedAt) < s.splash:
		return PhaseSplash
	case !loggedIn:
		return PhaseAuth
	default:
		return PhaseMain
	}
}

// lastN returns the last n bytes of s, or all of s when it is shorter.
func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
