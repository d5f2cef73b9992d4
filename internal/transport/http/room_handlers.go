package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/broadcast"
	"github.com/vovakirdan/roomchat-server/internal/core"
)

// RoomHandlers provides HTTP handlers for room management endpoints.
type RoomHandlers struct {
	registry *core.Registry
	hub      *broadcast.Hub
	log      *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(registry *core.Registry, hub *broadcast.Hub, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		registry: registry,
		hub:      hub,
		log:      logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateRoomRequest represents the create room request body.
type CreateRoomRequest struct {
	HostName string `json:"hostName"`
}

// JoinRoomRequest represents the join room request body.
type JoinRoomRequest struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

// RoomResponse is returned by create and join.
type RoomResponse struct {
	RoomCode string `json:"roomCode"`
	HostName string `json:"hostName"`
	Message  string `json:"message"`
}

// UserResponse is a room member in API responses.
type UserResponse struct {
	Username string `json:"username"`
}

// RoomDetailsResponse describes a live room.
type RoomDetailsResponse struct {
	RoomCode  string         `json:"roomCode"`
	HostName  string         `json:"hostName"`
	UserCount int            `json:"userCount"`
	Users     []UserResponse `json:"users"`
	CreatedAt string         `json:"createdAt"`
}

// StatsResponse reports live counters.
type StatsResponse struct {
	Rooms         int    `json:"rooms"`
	Subscriptions int    `json:"subscriptions"`
	Published     uint64 `json:"published"`
	Delivered     uint64 `json:"delivered"`
	Dropped       uint64 `json:"dropped"`
}

// CreateRoom handles room creation.
// POST /api/chatroom/create
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if strings.TrimSpace(req.HostName) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Host name is required"})
		return
	}

	room, err := h.registry.CreateRoom(req.HostName)
	if err != nil {
		if errors.Is(err, core.ErrCodeSpaceExhausted) {
			h.log.Error().Err(err).Msg("room code space exhausted")
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "no room codes available"})
			return
		}
		h.log.Error().Err(err).Str("host_name", req.HostName).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("room_code", room.Code()).Str("host_name", room.HostName()).Msg("room created successfully")
	c.JSON(http.StatusCreated, RoomResponse{
		RoomCode: room.Code(),
		HostName: room.HostName(),
		Message:  "Room created successfully",
	})
}

// JoinRoom checks that a room can be joined. Membership itself starts on the WebSocket.
// POST /api/chatroom/join
func (h *RoomHandlers) JoinRoom(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid join room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	code := normalizeRoomCode(req.RoomCode)
	if code == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Room code is required"})
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Username is required"})
		return
	}

	room, err := h.registry.GetRoom(code)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Room not found"})
		return
	}

	h.log.Debug().Str("room_code", code).Str("username", req.Username).Msg("join request accepted")
	c.JSON(http.StatusOK, RoomResponse{
		RoomCode: room.Code(),
		HostName: room.HostName(),
		Message:  "Room found. Connect via WebSocket to join.",
	})
}

// GetRoom returns room details and current members.
// GET /api/chatroom/:roomCode
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	room, err := h.registry.GetRoom(normalizeRoomCode(c.Param("roomCode")))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Room not found"})
		return
	}

	users := room.Users()
	resp := RoomDetailsResponse{
		RoomCode:  room.Code(),
		HostName:  room.HostName(),
		UserCount: len(users),
		Users:     make([]UserResponse, 0, len(users)),
		CreatedAt: room.CreatedAt().Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, u := range users {
		resp.Users = append(resp.Users, UserResponse{Username: u.Username})
	}

	c.JSON(http.StatusOK, resp)
}

// Stats reports registry and broadcaster counters.
// GET /api/stats
func (h *RoomHandlers) Stats(c *gin.Context) {
	st := h.hub.Stats()
	c.JSON(http.StatusOK, StatsResponse{
		Rooms:         h.registry.Count(),
		Subscriptions: st.Subscriptions,
		Published:     st.Published,
		Delivered:     st.Delivered,
		Dropped:       st.Dropped,
	})
}

// normalizeRoomCode accepts codes typed in lower case or with surrounding spaces.
func normalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
