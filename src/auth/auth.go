// Package auth signs users up and in, by password or through Google.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"sync"
	"time"

	"paper-trader/src/helpers"
	"paper-trader/src/logger"
	"paper-trader/src/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	minPasswordLength = 6
	stateTTL          = 10 * time.Minute
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

var (
	ErrEmailTaken         = helpers.NewAuthError("an account with this email already exists", nil)
	ErrInvalidCredentials = helpers.NewAuthError("invalid email or password", nil)
	ErrOAuthDisabled      = helpers.NewAuthError("google login is not configured", nil)
	ErrInvalidState       = helpers.NewAuthError("invalid or expired login state", nil)
)

// UserStore is the part of the persistence gateway auth needs.
type UserStore interface {
	CreateUser(user *models.MUser) bool
	GetUserByEmail(email string) *models.MUser
}

// -----------------------------------------------------------------------------

type Service struct {
	Users  UserStore
	Logger *logger.Logger

	defaultBalance decimal.Decimal
	oauth          *oauth2.Config
	userInfoURL    string

	mu     sync.Mutex
	states map[string]time.Time
}

// NewService builds the auth service. Google login is enabled only when cfg is complete.
func NewService(users UserStore, defaultBalance decimal.Decimal, cfg models.MOAuthConfig, log *logger.Logger) *Service {
	s := &Service{
		Users:          users,
		Logger:         log,
		defaultBalance: defaultBalance,
		userInfoURL:    googleUserInfoURL,
		states:         make(map[string]time.Time),
	}
	if cfg.Enabled() {
		s.oauth = &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}
	return s
}

func (s *Service) OAuthEnabled() bool { return s.oauth != nil }

// -----------------------------------------------------------------------------
// Password accounts
// -----------------------------------------------------------------------------

func (s *Service) SignUp(email, password, name string) (*models.MUser, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, helpers.NewValidationError("password must be at least %d characters", minPasswordLength)
	}
	if s.Users.GetUserByEmail(email) != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := s.newUser(email, name)
	user.PasswordHash = string(hash)

	if !s.Users.CreateUser(user) {
		return nil, helpers.NewAuthError("could not create account", nil)
	}
	s.Logger.Info("Created account %s", email)
	return user, nil
}

// -----------------------------------------------------------------------------

func (s *Service) Login(email, password string) (*models.MUser, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user := s.Users.GetUserByEmail(email)
	if user == nil || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// -----------------------------------------------------------------------------
// Google
// -----------------------------------------------------------------------------

// AuthCodeURL returns the Google consent URL carrying a fresh one-time state.
func (s *Service) AuthCodeURL() (string, error) {
	if s.oauth == nil {
		return "", ErrOAuthDisabled
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	state := hex.EncodeToString(buf)

	s.mu.Lock()
	now := time.Now()
	for k, exp := range s.states {
		if now.After(exp) {
			delete(s.states, k)
		}
	}
	s.states[state] = now.Add(stateTTL)
	s.mu.Unlock()

	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// -----------------------------------------------------------------------------

// Callback exchanges code for a token, reads the Google profile and returns
// the matching user, creating it on first login.
func (s *Service) Callback(ctx context.Context, state, code string) (*models.MUser, error) {
	if s.oauth == nil {
		return nil, ErrOAuthDisabled
	}
	if !s.consumeState(state) {
		return nil, ErrInvalidState
	}

	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, helpers.NewAuthError("code exchange failed", err)
	}
	profile, err := s.fetchProfile(ctx, tok)
	if err != nil {
		return nil, helpers.NewAuthError("could not read google profile", err)
	}

	email, err := normalizeEmail(profile.Email)
	if err != nil {
		return nil, err
	}
	if user := s.Users.GetUserByEmail(email); user != nil {
		return user, nil
	}
	user := s.newUser(email, profile.Name)
	if !s.Users.CreateUser(user) {
		return nil, helpers.NewAuthError("could not create account", nil)
	}
	s.Logger.Info("Created account %s from google login", email)
	return user, nil
}

type googleProfile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *Service) fetchProfile(ctx context.Context, tok *oauth2.Token) (*googleProfile, error) {
	resp, err := s.oauth.Client(ctx, tok).Get(s.userInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, body)
	}
	var p googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, err
	}
	if p.Email == "" {
		return nil, errors.New("profile has no email")
	}
	return &p, nil
}

func (s *Service) consumeState(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.states[state]
	if !ok {
		return false
	}
	delete(s.states, state)
	return time.Now().Before(exp)
}

// -----------------------------------------------------------------------------

func (s *Service) newUser(email, name string) *models.MUser {
	now := time.Now()
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	return &models.MUser{
		ID:             uuid.NewString(),
		Email:          email,
		Name:           name,
		VirtualBalance: s.defaultBalance,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func normalizeEmail(email string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return "", helpers.NewValidationError("invalid email address %q", email)
	}
	return strings.ToLower(addr.Address), nil
}
