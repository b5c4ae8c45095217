package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/codebugsleuth/bughunter/internal/analytics"
	"github.com/codebugsleuth/bughunter/internal/store"
)

// AdminHandler serves platform analytics for administrators.
type AdminHandler struct {
	analytics *analytics.Service
	users     *store.UserStore
}

// NewAdminHandler constructs an admin analytics handler.
func NewAdminHandler(service *analytics.Service, users *store.UserStore) *AdminHandler {
	return &AdminHandler{analytics: service, users: users}
}

// Overview returns platform-wide totals.
func (h *AdminHandler) Overview(c *gin.Context) {
	overview, errOverview := h.analytics.Overview(c.Request.Context())
	if errOverview != nil {
		log.WithError(errOverview).Error("analytics overview failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load overview"})
		return
	}
	c.JSON(http.StatusOK, overview)
}

// Trends returns the 30-day daily activity series.
func (h *AdminHandler) Trends(c *gin.Context) {
	points, errTrends := h.analytics.Trends(c.Request.Context())
	if errTrends != nil {
		log.WithError(errTrends).Error("analytics trends failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load trends"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trends": points})
}

// adminUserRow is the administrator's view of one account.
type adminUserRow struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	Tier        string     `json:"tier"`
	Status      string     `json:"status"`
	QuotaUsed   int        `json:"quota_used"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// Users searches accounts by email substring. An empty query lists the most
// recently registered accounts.
func (h *AdminHandler) Users(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	matches, errSearch := h.users.SearchByEmail(c.Request.Context(), c.Query("q"), limit)
	if errSearch != nil {
		log.WithError(errSearch).Error("user search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search users"})
		return
	}

	out := make([]adminUserRow, 0, len(matches))
	for _, user := range matches {
		out = append(out, adminUserRow{
			ID:          user.ID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
			Tier:        string(user.Tier),
			Status:      string(user.Status),
			QuotaUsed:   user.QuotaUsed,
			CreatedAt:   user.CreatedAt,
			LastLoginAt: user.LastLoginAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": out, "count": len(out)})
}
