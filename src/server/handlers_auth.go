package server

import (
	"net/http"

	"paper-trader/src/account"
	"paper-trader/src/models"

	"github.com/gin-gonic/gin"
)

type credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

// -----------------------------------------------------------------------------

func (s *APIServer) signUp(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	user, err := s.Auth.SignUp(req.Email, req.Password, req.Name)
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.startSession(c, user, http.StatusCreated)
}

func (s *APIServer) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	user, err := s.Auth.Login(req.Email, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.startSession(c, user, http.StatusOK)
}

// startSession moves the caller to a fresh token bound to user; the anonymous
// account of the request is discarded.
func (s *APIServer) startSession(c *gin.Context, user *models.MUser, status int) {
	acc, err := s.bindUser(c, user)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(status, gin.H{"user": acc.User(), "token": acc.Token()})
}

func (s *APIServer) bindUser(c *gin.Context, user *models.MUser) (*account.Account, error) {
	prev := currentAccount(c)
	acc := s.Accounts.Create()
	if err := s.Accounts.Login(c.Request.Context(), acc, user); err != nil {
		s.Accounts.Drop(acc.Token())
		return nil, err
	}
	if prev.User() == nil {
		s.Accounts.Drop(prev.Token())
	}
	s.setSessionCookie(c, acc.Token())
	return acc, nil
}

// -----------------------------------------------------------------------------

func (s *APIServer) logout(c *gin.Context) {
	acc := currentAccount(c)
	if err := s.Accounts.Logout(c.Request.Context(), acc); err != nil {
		s.Logger.Warning("Logout: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (s *APIServer) getMe(c *gin.Context) {
	acc := currentAccount(c)
	market, symbol := acc.Market()
	c.JSON(http.StatusOK, gin.H{
		"user":   acc.User(),
		"market": market,
		"symbol": symbol,
		"token":  acc.Token(),
	})
}

// -----------------------------------------------------------------------------
// Google
// -----------------------------------------------------------------------------

func (s *APIServer) oauthRedirect(c *gin.Context) {
	url, err := s.Auth.AuthCodeURL()
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (s *APIServer) oauthCallback(c *gin.Context) {
	if e := c.Query("error"); e != "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": e})
		return
	}
	user, err := s.Auth.Callback(c.Request.Context(), c.Query("state"), c.Query("code"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if _, err := s.bindUser(c, user); err != nil {
		abortWithError(c, err)
		return
	}
	target := s.Config.OAuth.SuccessURL
	if target == "" {
		target = "/"
	}
	c.Redirect(http.StatusFound, target)
}
