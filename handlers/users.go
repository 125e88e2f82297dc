package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freightline/portal-services/internal/docstore"
	"github.com/freightline/portal-services/internal/models"
	"github.com/freightline/portal-services/internal/users"
	"github.com/freightline/portal-services/pkg/logger"
)

// UpsertUserRequest creates or updates a portal account. Password is
// required for new accounts and optional on updates.
type UpsertUserRequest struct {
	Username string `json:"username" binding:"required"`
	Name     string `json:"name"`
	Role     string `json:"role" binding:"required"`
	Password string `json:"password"`
}

// UsersHandler exposes admin account management
type UsersHandler struct {
	svc *users.Service
}

func NewUsersHandler(svc *users.Service) *UsersHandler {
	return &UsersHandler{svc: svc}
}

// Register mounts the routes; callers attach auth/role middleware on rg.
func (h *UsersHandler) Register(rg *gin.RouterGroup) {
	u := rg.Group("/users")
	u.GET("", h.List)
	u.GET("/:username", h.Get)
	u.POST("", h.Upsert)
	u.POST("/:username/disable", h.Disable)
}

func (h *UsersHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		logger.Errorf("user list error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list})
}

func (h *UsersHandler) Get(c *gin.Context) {
	u, err := h.svc.Get(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeUserError(c, err)
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such user"})
		return
	}
	c.JSON(http.StatusOK, u.Public())
}

func (h *UsersHandler) Upsert(c *gin.Context) {
	var req UpsertUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.svc.Upsert(c.Request.Context(), &models.User{
		Username: req.Username,
		Name:     req.Name,
		Role:     req.Role,
	}, req.Password)
	if err != nil {
		writeUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, u.Public())
}

func (h *UsersHandler) Disable(c *gin.Context) {
	if err := h.svc.Disable(c.Request.Context(), c.Param("username")); err != nil {
		writeUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user disabled"})
}

func writeUserError(c *gin.Context, err error) {
	if errors.Is(err, docstore.ErrInvalidInput) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	logger.Errorf("user operation error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "user operation failed", "details": err.Error()})
}
