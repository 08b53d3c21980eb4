package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rensmac/govassist/internal/api/middleware"
	"github.com/rensmac/govassist/internal/api/response"
	"github.com/rensmac/govassist/internal/domain"
	"github.com/rensmac/govassist/internal/repository/redis"
	"github.com/rensmac/govassist/internal/service"
)

var validate = validator.New()

// ChatHandler handles the conversational endpoint
type ChatHandler struct {
	chatService *service.ChatService
	rateLimiter *redis.RateLimiter
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService, rateLimiter *redis.RateLimiter) *ChatHandler {
	return &ChatHandler{chatService: chatService, rateLimiter: rateLimiter}
}

// Message handles one inbound chat message. The service layer converts its
// own failures into reply envelopes, so this handler only rejects malformed
// requests and over-limit senders. Rate limiting happens here rather than in
// middleware because the limit is per end user, and the userId only exists
// after the body is decoded.
func (h *ChatHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if h.rateLimiter != nil {
		channelID, _ := middleware.GetChannelID(r.Context())
		allowed, remaining, resetTime, err := h.rateLimiter.Allow(r.Context(), channelID, req.UserID)
		if err == nil {
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", resetTime.Format(time.RFC3339))
			if !allowed {
				response.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
		// A limiter failure lets the message through rather than block chat.
	}

	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	resp := h.chatService.Handle(r.Context(), req)

	response.OK(w, resp)
}
