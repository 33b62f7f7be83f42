package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/auth"
	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/content"
	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/models"
	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/websocket"
)

type Handler struct {
	store content.Store
	hub   *websocket.Hub
}

func SetupRoutes(r *gin.RouterGroup, store content.Store, hub *websocket.Hub, tokens *auth.TokenService) {
	h := &Handler{store: store, hub: hub}

	r.GET("/ws", func(c *gin.Context) {
		websocket.HandleWebSocket(c, hub, tokens)
	})

	r.POST("/spaces", h.createSpace)
	r.GET("/spaces/:id", h.getSpace)
	r.POST("/spaces/:id/archive", h.archiveSpace)
	r.GET("/spaces/:id/content", h.getContent)
	r.GET("/spaces/:id/versions", h.getVersions)
	r.GET("/stats", h.getStats)
}

type createSpaceRequest struct {
	Title              string             `json:"title" binding:"required"`
	DefaultContentType models.ContentType `json:"default_content_type"`
	ProjectID          uuid.UUID          `json:"project_id"`
}

func (h *Handler) createSpace(c *gin.Context) {
	var req createSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.DefaultContentType != "" && !req.DefaultContentType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content type"})
		return
	}

	space := &models.Space{
		Title:              req.Title,
		DefaultContentType: req.DefaultContentType,
		ProjectID:          req.ProjectID,
	}
	if err := h.store.CreateSpace(c.Request.Context(), space); err != nil {
		log.Printf("Failed to create space: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create space"})
		return
	}

	c.JSON(http.StatusCreated, space)
}

func (h *Handler) getSpace(c *gin.Context) {
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid space ID"})
		return
	}

	space, err := h.store.LoadSpace(c.Request.Context(), spaceID)
	if errors.Is(err, content.ErrSpaceNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Space not found"})
		return
	}
	if err != nil {
		log.Printf("Failed to load space: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load space"})
		return
	}

	c.JSON(http.StatusOK, space)
}

func (h *Handler) archiveSpace(c *gin.Context) {
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid space ID"})
		return
	}

	err = h.store.ArchiveSpace(c.Request.Context(), spaceID)
	if errors.Is(err, content.ErrSpaceNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Space not found"})
		return
	}
	if err != nil {
		log.Printf("Failed to archive space: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to archive space"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) getContent(c *gin.Context) {
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid space ID"})
		return
	}

	snapshot, err := h.store.GetCurrent(c.Request.Context(), spaceID)
	if errors.Is(err, content.ErrSpaceNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Space not found"})
		return
	}
	if err != nil {
		log.Printf("Failed to load content: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load content"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (h *Handler) getVersions(c *gin.Context) {
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid space ID"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	versions, err := h.store.GetHistory(c.Request.Context(), spaceID, limit, offset)
	if errors.Is(err, content.ErrSpaceNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Space not found"})
		return
	}
	if err != nil {
		log.Printf("Failed to load versions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load versions"})
		return
	}

	c.JSON(http.StatusOK, versions)
}

func (h *Handler) getStats(c *gin.Context) {
	spaceCount, err := h.store.CountSpaces(c.Request.Context())
	if err != nil {
		log.Printf("Failed to count spaces: %v", err)
	}
	versionCount, err := h.store.CountVersions(c.Request.Context())
	if err != nil {
		log.Printf("Failed to count versions: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"space_count":   spaceCount,
		"version_count": versionCount,
		"online_count":  h.hub.OnlineCount(),
	})
}
