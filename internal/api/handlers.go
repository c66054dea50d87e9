package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"service":   ServiceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   ServiceVersion,
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		s.badRequest(c, "Email and password are required")
		return
	}

	u, token, err := s.users.login(req.Email, req.Password)
	if err != nil {
		s.log.Warn("login rejected", "email", req.Email, "request_id", c.GetString(RequestIDContextKey))
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid email or password"})
		return
	}
	c.JSON(http.StatusOK, authResponse{Token: token, User: u.view()})
}

func (s *Server) handleSignup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		s.badRequest(c, "Name, email and password are required")
		return
	}

	u, token, err := s.users.register(req.Name, req.Email, req.Password)
	if errors.Is(err, errEmailTaken) {
		c.JSON(http.StatusConflict, gin.H{"message": "Email already registered"})
		return
	}
	if err != nil {
		s.log.Error("signup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}
	s.log.Info("user registered", "email", u.Email, "id", u.ID)
	c.JSON(http.StatusOK, authResponse{Token: token, User: u.view()})
}

func (s *Server) handleStocks(c *gin.Context) {
	c.JSON(http.StatusOK, s.catalog)
}

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": msg})
}
