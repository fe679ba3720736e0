package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) createUser(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		Role     string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := s.Accounts.Create(c.Request.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		s.fail(c, "create user", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": a})
}

func (s *Server) updateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Username string `json:"username" binding:"required"`
		Role     string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := s.Accounts.Update(c.Request.Context(), id, req.Username, req.Role)
	if err != nil {
		s.fail(c, "update user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": a})
}

func (s *Server) deleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a, err := s.Accounts.Delete(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "delete user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": a})
}
