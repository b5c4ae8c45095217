package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/codebugsleuth/bughunter/internal/config"
	"github.com/codebugsleuth/bughunter/internal/mailer"
	"github.com/codebugsleuth/bughunter/internal/models"
	"github.com/codebugsleuth/bughunter/internal/security"
	"github.com/codebugsleuth/bughunter/internal/store"
)

// AuthHandler serves registration and login.
type AuthHandler struct {
	users       *store.UserStore
	mail        *mailer.Client
	jwtCfg      config.JWTConfig
	adminEmails map[string]bool
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(users *store.UserStore, mail *mailer.Client, jwtCfg config.JWTConfig, adminEmails []string) *AuthHandler {
	admins := make(map[string]bool, len(adminEmails))
	for _, email := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(email))] = true
	}
	return &AuthHandler{users: users, mail: mail, jwtCfg: jwtCfg, adminEmails: admins}
}

// registerRequest captures the registration payload.
type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// userResponse is the public view of a user account.
type userResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	Tier         string     `json:"tier"`
	Status       string     `json:"status"`
	IsAdmin      bool       `json:"is_admin"`
	QuotaUsed    int        `json:"quota_used"`
	QuotaResetAt time.Time  `json:"quota_reset_at"`
	TrialEndsAt  *time.Time `json:"trial_ends_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:           user.ID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		Tier:         string(user.Tier),
		Status:       string(user.Status),
		IsAdmin:      user.IsAdmin,
		QuotaUsed:    user.QuotaUsed,
		QuotaResetAt: user.QuotaResetAt,
		TrialEndsAt:  user.TrialEndsAt,
		CreatedAt:    user.CreatedAt,
	}
}

// Register creates a new account on the free tier with a trial window.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" || !strings.Contains(email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid email is required"})
		return
	}
	if len(body.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
		return
	}

	hashed, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		log.WithError(errHash).Error("hash password failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	user, errCreate := h.users.Create(c.Request.Context(), email, hashed, strings.TrimSpace(body.DisplayName), h.adminEmails[email])
	if errCreate != nil {
		if errors.Is(errCreate, store.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		log.WithError(errCreate).Error("create user failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	go func(welcome *models.User) {
		bg, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errWelcome := h.mail.SendWelcome(bg, welcome); errWelcome != nil {
			log.WithError(errWelcome).WithField("email", welcome.Email).Warn("welcome email failed")
		}
	}(user)

	token, errToken := security.IssueUserToken(h.jwtCfg.Secret, user.ID, user.Email, user.IsAdmin, h.jwtCfg.Expiry)
	if errToken != nil {
		log.WithError(errToken).Error("issue token failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": toUserResponse(user)})
}

// loginRequest captures the login payload.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and issues a JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	user, errFind := h.users.ByEmail(c.Request.Context(), body.Email)
	if errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !security.CheckPassword(user.Password, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if errTouch := h.users.TouchLastLogin(c.Request.Context(), user.ID); errTouch != nil {
		log.WithError(errTouch).Warn("touch last login failed")
	}

	token, errToken := security.IssueUserToken(h.jwtCfg.Secret, user.ID, user.Email, user.IsAdmin, h.jwtCfg.Expiry)
	if errToken != nil {
		log.WithError(errToken).Error("issue token failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": toUserResponse(user)})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}
