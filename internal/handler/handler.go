// Package handlers exposes the relief client's services over HTTP so a field
// frontend can drive them: alert feed, emergency lifecycle, alert chat with
// media, volunteer progress and the support assistant.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"JevanRaksha/internal/alerts"
	"JevanRaksha/internal/bot"
	"JevanRaksha/internal/chat"
	"JevanRaksha/internal/geo"
	livesync "JevanRaksha/internal/sync"
	"JevanRaksha/internal/volunteer"
)

type Handlers struct {
	alerts    *alerts.Service
	chat      *chat.Service
	assistant *bot.Assistant
	emergency *livesync.EmergencyService
	stats     *volunteer.StatsService
	locator   geo.Locator
}

func New(alertSvc *alerts.Service, chatSvc *chat.Service, assistant *bot.Assistant,
	emergency *livesync.EmergencyService, stats *volunteer.StatsService, locator geo.Locator) *Handlers {
	return &Handlers{
		alerts:    alertSvc,
		chat:      chatSvc,
		assistant: assistant,
		emergency: emergency,
		stats:     stats,
		locator:   locator,
	}
}

func (h *Handlers) Register(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/alerts", h.handleListAlerts)

	api.POST("/emergencies", h.handleRaiseEmergency)
	api.POST("/emergencies/:id/accept", h.handleAcceptMission)
	api.POST("/emergencies/:id/complete", h.handleCompleteMission)

	api.POST("/chat/:alertId/messages", h.handleSendMessage)
	api.POST("/chat/:alertId/media", h.handleSendMedia)

	api.GET("/volunteers/:id/progress", h.handleVolunteerProgress)

	api.POST("/assistant/messages", h.handleAskAssistant)
	api.GET("/assistant/history", h.handleAssistantHistory)
	api.DELETE("/assistant/history", h.handleResetAssistant)
}

// handleListAlerts returns the current alert snapshot. An explicit lat/lng
// query overrides the device position.
func (h *Handlers) handleListAlerts(c *gin.Context) {
	at := h.position(c)
	feed := h.alerts.Snapshot(c.Request.Context(), at)
	c.JSON(http.StatusOK, gin.H{"alerts": feed, "located": at != nil})
}

func (h *Handlers) position(c *gin.Context) *geo.Coordinate {
	latRaw, lngRaw := c.Query("lat"), c.Query("lng")
	if latRaw != "" && lngRaw != "" {
		lat, latErr := strconv.ParseFloat(latRaw, 64)
		lng, lngErr := strconv.ParseFloat(lngRaw, 64)
		if latErr == nil && lngErr == nil {
			return &geo.Coordinate{Lat: lat, Lng: lng}
		}
	}
	if h.locator == nil {
		return nil
	}
	point, err := h.locator.Current(c.Request.Context())
	if err != nil {
		return nil
	}
	return &point
}

func (h *Handlers) handleRaiseEmergency(c *gin.Context) {
	var req struct {
		UserID        string          `json:"userId" binding:"required"`
		EmergencyType string          `json:"emergencyType" binding:"required"`
		Description   string          `json:"description"`
		Location      *geo.Coordinate `json:"location"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	at := req.Location
	if at == nil {
		at = h.position(c)
	}
	alert, err := h.emergency.Raise(c.Request.Context(), req.UserID, req.EmergencyType, req.Description, at)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"alert": alert})
}

func (h *Handlers) handleAcceptMission(c *gin.Context) {
	var req struct {
		VolunteerID string `json:"volunteerId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.emergency.Accept(c.Request.Context(), c.Param("id"), req.VolunteerID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "in_progress"})
}

func (h *Handlers) handleCompleteMission(c *gin.Context) {
	if err := h.emergency.Complete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

func (h *Handlers) handleSendMessage(c *gin.Context) {
	var req struct {
		SenderID string `json:"senderId" binding:"required"`
		Message  string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.chat.Send(c.Request.Context(), c.Param("alertId"), req.SenderID, req.Message)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// handleSendMedia accepts a multipart upload: a "file" part plus a senderId
// form field.
func (h *Handlers) handleSendMedia(c *gin.Context) {
	senderID := c.PostForm("senderId")
	if senderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "senderId is required"})
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	msg, err := h.chat.SendMedia(c.Request.Context(), c.Param("alertId"), senderID,
		header.Filename, header.Header.Get("Content-Type"), f, header.Size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// handleVolunteerProgress returns a volunteer's mission stats with the
// derived level and badges. Cached stats are served when fresh.
func (h *Handlers) handleVolunteerProgress(c *gin.Context) {
	volunteerID := c.Param("id")
	stats, ok := h.stats.Cached(c.Request.Context(), volunteerID)
	if !ok {
		var err error
		stats, err = h.stats.Recompute(c.Request.Context(), volunteerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	badges := volunteer.BadgesFor(stats)
	payload := gin.H{
		"stats":  stats,
		"level":  volunteer.LevelFor(stats.MissionsCompleted),
		"badges": badges,
	}
	if next, ok := volunteer.NextBadge(badges); ok {
		payload["nextBadge"] = next
	}
	c.JSON(http.StatusOK, payload)
}

func (h *Handlers) handleAskAssistant(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reply := h.assistant.Send(c.Request.Context(), req.Message)
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

func (h *Handlers) handleAssistantHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": h.assistant.History()})
}

func (h *Handlers) handleResetAssistant(c *gin.Context) {
	h.assistant.Reset()
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}
