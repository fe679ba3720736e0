package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tagattend/internal/logger"
	"tagattend/internal/students"
)

type studentBody struct {
	FName string `json:"fname"`
	LName string `json:"lname"`
	Grade int    `json:"grade"`
	Sec   string `json:"sec"`
}

func (b studentBody) student(id int64) students.Student {
	return students.Student{ID: id, FName: b.FName, LName: b.LName, Grade: b.Grade, Sec: b.Sec}
}

func (s *Server) createStudent(c *gin.Context) {
	var req struct {
		studentBody
		ID    int64  `json:"id"`
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := s.Students.Create(c.Request.Context(), req.student(req.ID), req.Token)
	if err != nil {
		s.fail(c, "create student", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": st})
}

func (s *Server) updateStudent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req studentBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := s.Students.Update(c.Request.Context(), req.student(id))
	if err != nil {
		s.fail(c, "update student", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": st})
}

func (s *Server) deleteStudent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	st, err := s.Students.Delete(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "delete student", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": st})
}

// beginRegistration opens a pending registration and arms the scanner. An
// unreachable scanner does not fail the request; the tag can still be typed in.
func (s *Server) beginRegistration(c *gin.Context) {
	p, err := s.Pending.Begin(c.Request.Context())
	if err != nil {
		s.fail(c, "begin registration", err)
		return
	}
	armed := true
	if s.Scanner != nil {
		if err := s.Scanner.Arm(c.Request.Context(), p); err != nil {
			armed = false
			s.Log.Warn("scanner not armed", zap.String(logger.FieldToken, p.Token), zap.Error(err))
		}
	}
	c.JSON(http.StatusCreated, gin.H{"token": p.Token, "expires_at": p.ExpiresAt.Unix(), "armed": armed})
}

func (s *Server) pollRegistration(c *gin.Context) {
	id, err := s.Pending.Lookup(c.Request.Context(), c.Param("token"))
	if err != nil {
		s.fail(c, "poll registration", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (s *Server) attachTag(c *gin.Context) {
	var req struct {
		ID int64 `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.Pending.Attach(c.Request.Context(), c.Param("token"), req.ID); err != nil {
		s.fail(c, "attach tag", err)
		return
	}
	c.Status(http.StatusNoContent)
}
