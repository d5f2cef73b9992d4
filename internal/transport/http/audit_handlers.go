package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/store"
)

const maxAuditLimit = 500

// AuditHandlers serves the room lifecycle log.
type AuditHandlers struct {
	store store.AuditStore
	log   *zerolog.Logger
}

// NewAuditHandlers creates audit handlers over st.
func NewAuditHandlers(st store.AuditStore, logger *zerolog.Logger) *AuditHandlers {
	return &AuditHandlers{store: st, log: logger}
}

// RoomEventResponse is one audit entry.
type RoomEventResponse struct {
	ID           int64  `json:"id"`
	RoomCode     string `json:"roomCode"`
	Kind         string `json:"kind"`
	HostName     string `json:"hostName,omitempty"`
	MessageCount int    `json:"messageCount"`
	At           string `json:"at"`
}

// ListEvents returns audit entries, oldest first, optionally for a single room.
// GET /api/audit[/:roomCode]?limit=N
func (h *AuditHandlers) ListEvents(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxAuditLimit {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be between 1 and " + strconv.Itoa(maxAuditLimit)})
			return
		}
		limit = n
	}

	code := normalizeRoomCode(c.Param("roomCode"))
	events, err := h.store.ListRoomEvents(c.Request.Context(), code, limit)
	if err != nil {
		h.log.Error().Err(err).Str("room_code", code).Msg("failed to list room events")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := make([]RoomEventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, RoomEventResponse{
			ID:           ev.ID,
			RoomCode:     ev.RoomCode,
			Kind:         string(ev.Kind),
			HostName:     ev.HostName,
			MessageCount: ev.MessageCount,
			At:           ev.At.UTC().Format(time.RFC3339Nano),
		})
	}
	c.JSON(http.StatusOK, resp)
}
