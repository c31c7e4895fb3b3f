package http

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/YumYum643/discord-clone/internal/auth"
	"github.com/YumYum643/discord-clone/internal/store"
)

// ChannelHandlers provides HTTP handlers for the channel directory API.
type ChannelHandlers struct {
	store        store.Store
	log          *zerolog.Logger
	historyLimit int
}

// NewChannelHandlers creates a new channel handlers instance.
func NewChannelHandlers(st store.Store, logger *zerolog.Logger, historyLimit int) *ChannelHandlers {
	return &ChannelHandlers{
		store:        st,
		log:          logger,
		historyLimit: historyLimit,
	}
}

// CreateChannelRequest represents the create channel request body.
type CreateChannelRequest struct {
	Name           string  `json:"name" binding:"required,min=1,max=64"`
	Description    string  `json:"description" binding:"max=256"`
	Kind           string  `json:"kind" binding:"omitempty,oneof=public private"`
	Secret         string  `json:"secret"`
	ParticipantIDs []int64 `json:"participant_ids"`
}

// ChannelResponse represents a channel in API responses. The secret itself
// is never exposed, only whether one is set.
type ChannelResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	HasSecret   bool   `json:"has_secret"`
	CreatedAt   string `json:"created_at"`
}

// HistoryMessageResponse represents one history entry in API responses.
type HistoryMessageResponse struct {
	ID        int64  `json:"id"`
	ChannelID int64  `json:"channel_id"`
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// VerifySecretRequest represents the verify secret request body.
type VerifySecretRequest struct {
	Secret string `json:"secret"`
}

// VerifySecretResponse reports whether the supplied secret matched.
type VerifySecretResponse struct {
	OK bool `json:"ok"`
}

// CreateChannel handles channel creation. Every call creates a new row;
// there is no dedup by name or participant set.
// POST /api/channels
func (h *ChannelHandlers) CreateChannel(c *gin.Context) {
	uid, ok := authedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create channel request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	kind := store.ChannelKindPublic
	if req.Kind == string(store.ChannelKindPrivate) {
		kind = store.ChannelKindPrivate
	}

	var participantIDs []int64
	secretHash := ""
	if kind == store.ChannelKindPrivate {
		if len(req.ParticipantIDs) == 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "private channel requires participants"})
			return
		}
		participantIDs = req.ParticipantIDs
		// The creator is always a participant of their own channel.
		if !slices.Contains(participantIDs, uid) {
			participantIDs = append(participantIDs, uid)
		}
	} else if req.Secret != "" {
		hash, err := auth.HashSecret(req.Secret)
		if err != nil {
			h.log.Error().Err(err).Msg("failed to hash channel secret")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		secretHash = hash
	}

	ch, err := h.store.CreateChannel(c.Request.Context(), req.Name, req.Description, kind, secretHash, participantIDs)
	if err != nil {
		if errors.Is(err, store.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid channel"})
			return
		}
		h.log.Error().Err(err).Str("channel_name", req.Name).Msg("failed to create channel")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().
		Str("channel_name", ch.Name).
		Int64("channel_id", ch.ID).
		Int64("creator_id", uid).
		Msg("channel created")
	c.JSON(http.StatusCreated, channelResponse(ch))
}

// ListChannels handles listing channels visible to the requesting user.
// GET /api/channels
func (h *ChannelHandlers) ListChannels(c *gin.Context) {
	uid, ok := authedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	channels, err := h.store.ListChannelsVisibleTo(c.Request.Context(), &uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to list channels")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]ChannelResponse, 0, len(channels))
	for _, ch := range channels {
		response = append(response, channelResponse(ch))
	}

	c.JSON(http.StatusOK, response)
}

// GetHistory handles fetching the ordered message history of a channel.
// GET /api/channels/:id/messages
func (h *ChannelHandlers) GetHistory(c *gin.Context) {
	channelID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid channel id"})
		return
	}

	entries, err := h.store.GetHistory(c.Request.Context(), channelID, h.historyLimit)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "channel not found"})
			return
		}
		h.log.Error().Err(err).Int64("channel_id", channelID).Msg("failed to load history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]HistoryMessageResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, HistoryMessageResponse{
			ID:        e.ID,
			ChannelID: e.ChannelID,
			UserID:    e.UserID,
			Username:  e.Username,
			AvatarURL: e.AvatarURL,
			Content:   e.Content,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, response)
}

// VerifySecret handles checking a supplied secret against a channel.
// A channel without a secret never verifies, not even against the empty
// string.
// POST /api/channels/:id/verify
func (h *ChannelHandlers) VerifySecret(c *gin.Context) {
	channelID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid channel id"})
		return
	}

	var req VerifySecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ch, err := h.store.GetChannelByID(c.Request.Context(), channelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "channel not found"})
			return
		}
		h.log.Error().Err(err).Int64("channel_id", channelID).Msg("failed to load channel")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	ok := ch.HasSecret() && auth.CompareSecret(ch.SecretHash, req.Secret)
	c.JSON(http.StatusOK, VerifySecretResponse{OK: ok})
}

func channelResponse(ch *store.Channel) ChannelResponse {
	return ChannelResponse{
		ID:          ch.ID,
		Name:        ch.Name,
		Description: ch.Description,
		Kind:        string(ch.Kind),
		HasSecret:   ch.HasSecret(),
		CreatedAt:   ch.CreatedAt.UTC().Format(time.RFC3339),
	}
}
