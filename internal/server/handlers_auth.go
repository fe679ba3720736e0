package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tagattend/internal/accounts"
	"tagattend/internal/auth"
	"tagattend/internal/logger"
)

func (s *Server) login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acct, err := s.Accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, accounts.ErrInvalidCredentials) {
		s.Log.Info("login rejected", zap.String(logger.FieldUsername, req.Username))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}
	if err != nil {
		s.fail(c, "login", err)
		return
	}

	tok, err := auth.Issue(acct.Username, acct.Role, s.opts.JWTIssuer, s.opts.JWTSigningKey, s.opts.AccessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.CookieName, tok.Value, int(s.opts.AccessTTL.Seconds()), "/", "", s.opts.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{
		"token":      tok.Value,
		"expires_at": tok.ExpiresAt.Unix(),
		"role":       acct.Role,
	})
}

func (s *Server) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", s.opts.SecureCookie, true)
	c.Status(http.StatusNoContent)
}

func (s *Server) me(c *gin.Context) {
	p, _ := auth.PrincipalFrom(c)
	c.JSON(http.StatusOK, p)
}

// issueScanner mints a long-lived token for a tag-reader device.
func (s *Server) issueScanner(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tok, err := auth.Issue(req.Name, auth.RoleScanner, s.opts.JWTIssuer, s.opts.JWTSigningKey, s.opts.ScannerTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": tok.Value, "expires_at": tok.ExpiresAt.Unix()})
}
