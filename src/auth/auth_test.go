package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"paper-trader/src/helpers"
	"paper-trader/src/logger"
	"paper-trader/src/models"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
)

type fakeUsers struct {
	byEmail map[string]*models.MUser
	fail    bool
}

func (f *fakeUsers) CreateUser(u *models.MUser) bool {
	if f.fail {
		return false
	}
	f.byEmail[u.Email] = u
	return true
}

func (f *fakeUsers) GetUserByEmail(email string) *models.MUser { return f.byEmail[email] }

func newTestService(cfg models.MOAuthConfig) (*Service, *fakeUsers) {
	users := &fakeUsers{byEmail: map[string]*models.MUser{}}
	return NewService(users, decimal.NewFromInt(100000), cfg, logger.NewLogger("auth-test")), users
}

// -----------------------------------------------------------------------------

func TestSignUpAndLogin(t *testing.T) {
	s, users := newTestService(models.MOAuthConfig{})

	user, err := s.SignUp(" Trader@Example.com ", "secret1", "")
	if err != nil {
		t.Fatal(err)
	}
	if user.Email != "trader@example.com" || user.Name != "trader" || user.ID == "" {
		t.Errorf("unexpected user %+v", user)
	}
	if !user.VirtualBalance.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("new users start with the default balance, got %s", user.VirtualBalance)
	}
	if users.byEmail["trader@example.com"].PasswordHash == "secret1" {
		t.Error("password stored in clear")
	}

	if _, err := s.Login("trader@example.com", "secret1"); err != nil {
		t.Errorf("login failed: %v", err)
	}
	if _, err := s.Login("trader@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected invalid credentials, got %v", err)
	}
	if _, err := s.Login("nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected invalid credentials for unknown user, got %v", err)
	}
}

func TestSignUpRejections(t *testing.T) {
	s, users := newTestService(models.MOAuthConfig{})
	s.SignUp("a@b.co", "secret1", "A")

	if _, err := s.SignUp("A@B.co", "secret2", "A"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected duplicate email error, got %v", err)
	}
	if _, err := s.SignUp("not-an-email", "secret1", ""); !helpers.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := s.SignUp("c@d.co", "123", ""); !helpers.IsValidation(err) {
		t.Errorf("expected short password error, got %v", err)
	}

	users.fail = true
	if _, err := s.SignUp("e@f.co", "secret1", ""); !helpers.IsAuth(err) {
		t.Errorf("expected auth error when the store fails, got %v", err)
	}
}

func TestOAuthDisabled(t *testing.T) {
	s, _ := newTestService(models.MOAuthConfig{})
	if s.OAuthEnabled() {
		t.Fatal("oauth should be disabled without credentials")
	}
	if _, err := s.AuthCodeURL(); !errors.Is(err, ErrOAuthDisabled) {
		t.Errorf("expected disabled error, got %v", err)
	}
}

func TestOAuthCallbackCreatesUserOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
		case "/userinfo":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"email":"G.User@gmail.com","name":"G User"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s, users := newTestService(models.MOAuthConfig{ClientID: "id", ClientSecret: "secret", RedirectURL: "http://localhost/cb"})
	s.oauth.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	s.userInfoURL = srv.URL + "/userinfo"

	login := func() *models.MUser {
		raw, err := s.AuthCodeURL()
		if err != nil {
			t.Fatal(err)
		}
		u, _ := url.Parse(raw)
		user, err := s.Callback(context.Background(), u.Query().Get("state"), "code")
		if err != nil {
			t.Fatal(err)
		}
		return user
	}

	first := login()
	second := login()
	if first.Email != "g.user@gmail.com" || first.Name != "G User" {
		t.Errorf("unexpected user %+v", first)
	}
	if first.ID != second.ID || len(users.byEmail) != 1 {
		t.Error("second login should reuse the account")
	}

	if _, err := s.Callback(context.Background(), "forged", "code"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected invalid state, got %v", err)
	}
}
