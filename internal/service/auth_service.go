// Package service contains the session core: registration, login, refresh
// token rotation, logout and access-token authentication. It is the only
// component that reads or writes the persisted refresh token.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/inventory-api/internal/apperr"
	"github.com/iliyamo/inventory-api/internal/metrics"
	"github.com/iliyamo/inventory-api/internal/model"
	"github.com/iliyamo/inventory-api/internal/queue"
	"github.com/iliyamo/inventory-api/internal/repository"
	"github.com/iliyamo/inventory-api/internal/utils"
)

// storeTimeout bounds every call into the user store.
const storeTimeout = 5 * time.Second

// UserStore is the credential store the service depends on. Both
// repository.UserRepo and repository.MemoryUserRepo implement it.
type UserStore interface {
	Create(ctx context.Context, u *model.User) (uint64, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	UpdateRefreshToken(ctx context.Context, id uint64, token *string) error
	SwapRefreshToken(ctx context.Context, id uint64, expected, next string) (bool, error)
	UpdateFields(ctx context.Context, id uint64, upd model.UserUpdate) error
	List(ctx context.Context) ([]model.User, error)
	ListByStore(ctx context.Context, storeID uint64) ([]model.User, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// Tokens issues and verifies the two token classes.
type Tokens interface {
	IssueAccess(userID uint64) (utils.Token, error)
	IssueRefresh(userID uint64) (utils.Token, error)
	VerifyAccess(raw string) (*utils.Claims, error)
	VerifyRefresh(raw string) (*utils.Claims, error)
}

// EventPublisher ships auth events; failures never fail the request.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.AuthEvent) error
}

// Session is the result of a successful login or refresh.
type Session struct {
	User    model.PublicUser
	Access  utils.Token
	Refresh utils.Token
}

// RegisterInput is the raw registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	StoreID  *uint64
}

// AuthService orchestrates the session lifecycle.
type AuthService struct {
	users  UserStore
	hasher PasswordHasher
	tokens Tokens
	events EventPublisher
	log    *zap.Logger
}

// NewAuthService wires the service. events may be nil.
func NewAuthService(users UserStore, hasher PasswordHasher, tokens Tokens, events EventPublisher, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, hasher: hasher, tokens: tokens, events: events, log: logger}
}

// Register validates and creates a user and returns the stored record.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := repository.NormalizeEmail(in.Email)
	if name == "" || email == "" || strings.TrimSpace(in.Password) == "" || strings.TrimSpace(in.Role) == "" {
		metrics.RecordRegistration("bad_request")
		return nil, apperr.BadRequest("All fields (name, email, password, role) are required.")
	}
	if !validEmail(email) {
		metrics.RecordRegistration("bad_request")
		return nil, apperr.BadRequest("Email address is not valid.")
	}
	role, ok := model.ParseRole(in.Role)
	if !ok {
		metrics.RecordRegistration("bad_request")
		return nil, apperr.BadRequest("Role must be one of " + model.RoleNames() + ".")
	}
	storeID := in.StoreID
	if !role.RequiresStore() {
		storeID = nil
	} else if storeID == nil || *storeID == 0 {
		metrics.RecordRegistration("bad_request")
		return nil, apperr.BadRequest("store_id is required for role " + string(role) + ".")
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	// Fast path only; the unique index decides races.
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		metrics.RecordRegistration("conflict")
		return nil, apperr.Conflict("A user with this email already exists.")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		metrics.RecordRegistration("error")
		return nil, apperr.Internal(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			metrics.RecordRegistration("bad_request")
			return nil, apperr.BadRequest("Password must be at most 72 bytes.")
		}
		metrics.RecordRegistration("error")
		return nil, apperr.Internal(err)
	}

	id, err := s.users.Create(ctx, &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		StoreID:      storeID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			metrics.RecordRegistration("conflict")
			return nil, apperr.Conflict("A user with this email already exists.")
		}
		metrics.RecordRegistration("error")
		return nil, apperr.Internal(err)
	}

	created, err := s.users.GetByID(ctx, id)
	if err != nil {
		metrics.RecordRegistration("error")
		return nil, apperr.Wrap(apperr.KindInternal, "Something went wrong during registration.", err)
	}
	metrics.RecordRegistration("success")
	s.log.Info("user registered", zap.Uint64("user_id", id), zap.String("role", string(role)))
	s.publish(ctx, queue.EventRegistered, created)
	return created, nil
}

// Login verifies credentials, issues a token pair and overwrites the stored
// refresh token, ending any previous session.
func (s *AuthService) Login(ctx context.Context, usernameOrEmail, password string) (*Session, error) {
	email := repository.NormalizeEmail(usernameOrEmail)
	if email == "" || strings.TrimSpace(password) == "" {
		metrics.RecordLogin("bad_request")
		return nil, apperr.BadRequest("Username/email and password are required.")
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			metrics.RecordLogin("not_found")
			return nil, apperr.NotFound("Incorrect email. Please try again or register.")
		}
		metrics.RecordLogin("error")
		return nil, apperr.Internal(err)
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		metrics.RecordLogin("invalid_credentials")
		s.log.Info("login rejected", zap.Uint64("user_id", u.ID))
		return nil, apperr.Unauthorized("Invalid credentials. Please try again.")
	}

	access, refresh, err := s.issuePair(u.ID)
	if err != nil {
		metrics.RecordLogin("error")
		return nil, err
	}
	if err := s.users.UpdateRefreshToken(ctx, u.ID, &refresh.Value); err != nil {
		metrics.RecordLogin("error")
		return nil, apperr.Wrap(apperr.KindInternal, "Token generation error", err)
	}

	metrics.RecordLogin("success")
	s.publish(ctx, queue.EventLoggedIn, u)
	return &Session{User: u.Public(), Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token must
// equal the stored one exactly, and the rotation only lands if the stored
// value is still the presented one, so of two concurrent refreshes with the
// same token exactly one succeeds.
func (s *AuthService) Refresh(ctx context.Context, presented string) (*Session, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		metrics.RecordRefresh("bad_request")
		return nil, apperr.BadRequest("User doesn't have a refresh token.")
	}
	claims, err := s.tokens.VerifyRefresh(presented)
	if err != nil {
		metrics.RecordRefresh("invalid_token")
		s.log.Info("refresh token rejected", zap.String("reason", utils.TokenFailureReason(err)))
		return nil, apperr.Unauthorized("Invalid or expired refresh token.")
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			metrics.RecordRefresh("not_found")
			return nil, apperr.NotFound("No user exists with this token.")
		}
		metrics.RecordRefresh("error")
		return nil, apperr.Internal(err)
	}
	if u.RefreshToken == nil || subtle.ConstantTimeCompare([]byte(*u.RefreshToken), []byte(presented)) != 1 {
		metrics.RecordRefresh("mismatch")
		s.log.Warn("refresh token mismatch", zap.Uint64("user_id", u.ID), zap.Bool("logged_out", u.RefreshToken == nil))
		s.publish(ctx, queue.EventRefreshReuse, u)
		return nil, apperr.Forbidden("Refresh tokens do not match.")
	}

	access, refresh, err := s.issuePair(u.ID)
	if err != nil {
		metrics.RecordRefresh("error")
		return nil, err
	}
	swapped, err := s.users.SwapRefreshToken(ctx, u.ID, presented, refresh.Value)
	if err != nil {
		metrics.RecordRefresh("error")
		return nil, apperr.Internal(err)
	}
	if !swapped {
		metrics.RecordRefresh("race_lost")
		s.log.Warn("refresh token rotated concurrently", zap.Uint64("user_id", u.ID))
		return nil, apperr.Forbidden("Refresh tokens do not match.")
	}

	metrics.RecordRefresh("success")
	s.publish(ctx, queue.EventRefreshed, u)
	return &Session{User: u.Public(), Access: access, Refresh: refresh}, nil
}

// Logout clears the stored refresh token. It is idempotent.
func (s *AuthService) Logout(ctx context.Context, u *model.User) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.users.UpdateRefreshToken(ctx, u.ID, nil); err != nil {
		return apperr.Internal(err)
	}
	metrics.RecordLogout()
	s.publish(ctx, queue.EventLoggedOut, u)
	return nil
}

// Authenticate resolves a raw access token to the user it was issued for.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*model.User, error) {
	if raw == "" {
		metrics.RecordGateRejection("missing")
		return nil, apperr.Unauthorized("Unauthorized request: access token missing.")
	}
	claims, err := s.tokens.VerifyAccess(raw)
	if err != nil {
		reason := utils.TokenFailureReason(err)
		metrics.RecordGateRejection(reason)
		s.log.Debug("access token rejected", zap.String("reason", reason))
		return nil, apperr.Unauthorized("Invalid or expired access token.")
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			metrics.RecordGateRejection("unknown_user")
			return nil, apperr.Unauthorized("Invalid access token.")
		}
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// ChangePassword replaces the password of u after checking the current one
// and clears the stored refresh token, so every session has to log in again.
func (s *AuthService) ChangePassword(ctx context.Context, u *model.User, current, next string) error {
	if strings.TrimSpace(current) == "" || strings.TrimSpace(next) == "" {
		return apperr.BadRequest("Current and new password are required.")
	}
	if !s.hasher.Verify(current, u.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect.")
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return apperr.BadRequest("Password must be at most 72 bytes.")
		}
		return apperr.Internal(err)
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.users.UpdateFields(ctx, u.ID, model.UserUpdate{PasswordHash: &hash, ClearRefreshToken: true}); err != nil {
		return apperr.Internal(err)
	}
	s.publish(ctx, queue.EventPasswordChanged, u)
	return nil
}

// UpdateProfile changes the name and/or email of u. Nil arguments are left
// untouched.
func (s *AuthService) UpdateProfile(ctx context.Context, u *model.User, name, email *string) (*model.User, error) {
	var upd model.UserUpdate
	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" {
			return nil, apperr.BadRequest("Name cannot be empty.")
		}
		upd.Name = &n
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if email != nil {
		e := repository.NormalizeEmail(*email)
		if !validEmail(e) {
			return nil, apperr.BadRequest("Email address is not valid.")
		}
		if e != u.Email {
			if other, err := s.users.GetByEmail(ctx, e); err == nil && other.ID != u.ID {
				return nil, apperr.Conflict("A user with this email already exists.")
			} else if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
				return nil, apperr.Internal(err)
			}
			upd.Email = &e
		}
	}
	if name == nil && email == nil {
		return nil, apperr.BadRequest("Nothing to update.")
	}

	if err := s.users.UpdateFields(ctx, u.ID, upd); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, apperr.Conflict("A user with this email already exists.")
		}
		return nil, apperr.Internal(err)
	}
	updated, err := s.users.GetByID(ctx, u.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return updated, nil
}

// ListUsers returns every user, newest first.
func (s *AuthService) ListUsers(ctx context.Context) ([]model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

// ListUsersByStore returns the users of one store, newest first.
func (s *AuthService) ListUsersByStore(ctx context.Context, storeID uint64) ([]model.User, error) {
	if storeID == 0 {
		return nil, apperr.BadRequest("store_id is required.")
	}
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	users, err := s.users.ListByStore(ctx, storeID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

// validEmail accepts a bare address only, not "Name <addr>".
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func (s *AuthService) issuePair(userID uint64) (utils.Token, utils.Token, error) {
	access, err := s.tokens.IssueAccess(userID)
	if err != nil {
		return utils.Token{}, utils.Token{}, apperr.Wrap(apperr.KindInternal, "Token generation error", err)
	}
	refresh, err := s.tokens.IssueRefresh(userID)
	if err != nil {
		return utils.Token{}, utils.Token{}, apperr.Wrap(apperr.KindInternal, "Token generation error", err)
	}
	return access, refresh, nil
}

func (s *AuthService) publish(ctx context.Context, typ queue.EventType, u *model.User) {
	if s.events == nil {
		return
	}
	ev := queue.AuthEvent{
		Type:       typ,
		UserID:     u.ID,
		Email:      u.Email,
		Role:       string(u.Role),
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("auth event dropped", zap.String("type", string(typ)), zap.Error(err))
	}
}
