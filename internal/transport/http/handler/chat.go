package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docuchat/internal/agent"
	"docuchat/internal/app"
	"docuchat/internal/transport/http/middleware"
	"docuchat/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type SendMessageRequest struct {
	ConversationID string `json:"conversation_id"` // empty runs a single-shot turn
	Question       string `json:"question" binding:"required"`
}

type FeedbackRequest struct {
	InteractionID uint  `json:"interaction_id" binding:"required,gt=0"`
	IsPositive    *bool `json:"is_positive" binding:"required"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	reply, err := h.chatService.SendMessage(c.Request.Context(), userID, req.ConversationID, req.Question)
	if err != nil {
		var invocationErr *agent.InvocationError
		switch {
		case errors.Is(err, app.ErrEmptyQuestion):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrConversationNotFound):
			response.Error(c, http.StatusNotFound, response.CodeConversationNotFound, err.Error())
		case errors.As(err, &invocationErr):
			response.Error(c, http.StatusBadGateway, response.CodeInternalServer, "assistant invocation failed")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "send message failed")
		}
		return
	}

	response.OK(c, reply)
}

func (h *ChatHandler) SubmitFeedback(c *gin.Context) {
	if _, ok := getUserIDFromContext(c); !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	feedback, err := h.chatService.SubmitFeedback(req.InteractionID, *req.IsPositive)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInteractionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeInteractionNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "submit feedback failed")
		}
		return
	}

	response.OK(c, feedback)
}

func (h *ChatHandler) GetInteraction(c *gin.Context) {
	if _, ok := getUserIDFromContext(c); !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	interactionID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || interactionID64 == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid interaction id")
		return
	}

	detail, err := h.chatService.GetInteraction(uint(interactionID64))
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInteractionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeInteractionNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get interaction failed")
		}
		return
	}

	response.OK(c, detail)
}

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	return userID, ok
}
