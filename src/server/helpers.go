package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"paper-trader/src/account"
	"paper-trader/src/helpers"
	"paper-trader/src/models"

	"github.com/gin-gonic/gin"
)

const (
	sessionCookie = "pt_session"
	accountKey    = "account"
)

// -----------------------------------------------------------------------------
// Session
// -----------------------------------------------------------------------------

// requestToken reads the session token from the Authorization header or the cookie.
func requestToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if v, err := c.Cookie(sessionCookie); err == nil {
		return v
	}
	return ""
}

// session attaches the caller's account, opening an anonymous one when the
// request carries no known token.
func (s *APIServer) session() gin.HandlerFunc {
	return func(c *gin.Context) {
		acc, ok := s.Accounts.Get(c.Request.Context(), requestToken(c))
		if !ok {
			acc = s.Accounts.Create()
			s.setSessionCookie(c, acc.Token())
		}
		c.Header("X-Session-Token", acc.Token())
		c.Set(accountKey, acc)
		c.Next()
	}
}

func (s *APIServer) setSessionCookie(c *gin.Context, token string) {
	maxAge := s.Config.Session.TTLHours * 3600
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, maxAge, "/", "", s.Config.Session.CookieSecure, true)
}

func currentAccount(c *gin.Context) *account.Account {
	return c.MustGet(accountKey).(*account.Account)
}

// -----------------------------------------------------------------------------
// Responses
// -----------------------------------------------------------------------------

// abortWithError maps an application error to its HTTP status.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case helpers.IsValidation(err):
		status = http.StatusBadRequest
	case helpers.IsAuth(err):
		status = http.StatusUnauthorized
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, format string, args ...interface{}) {
	abortWithError(c, helpers.NewValidationError(format, args...))
}

// -----------------------------------------------------------------------------
// Parameters
// -----------------------------------------------------------------------------

func marketParam(c *gin.Context) (models.Market, bool) {
	market, err := models.ParseMarket(c.Param("market"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return "", false
	}
	return market, true
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return v, nil
}
