// Package handler provides HTTP handlers for the chatbot service.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/logger"
	"github.com/kart-io/providentia/internal/chatbot/biz"
	"github.com/kart-io/providentia/internal/pkg/middleware"
)

// ChatHandler handles chat HTTP requests.
type ChatHandler struct {
	service *biz.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(service *biz.ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ChatRequest represents a chat request.
type ChatRequest struct {
	Question string `json:"question" binding:"required"`
}

// HistoryResponse represents a chat history page.
type HistoryResponse struct {
	Success bool  `json:"success"`
	Data    any   `json:"data"`
	Count   int   `json:"count"`
	Total   int64 `json:"total"`
}

// StatsResponse wraps aggregate usage statistics.
type StatsResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// Chat runs one chat turn for the authenticated user.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	userID := middleware.UserID(c)

	result, err := h.service.Chat(c.Request.Context(), userID, req.Question)
	if err != nil {
		if errors.Is(err, biz.ErrInvalidQuestion) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: "Failed to process chat request"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// History returns a page of the user's chat history, newest first.
func (h *ChatHandler) History(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	userID := middleware.UserID(c)

	list, err := h.service.History(c.Request.Context(), userID, limit, offset)
	if err != nil {
		logger.Errorw("failed to retrieve chat history", "user_id", userID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: "Failed to retrieve chat history"})
		return
	}

	c.JSON(http.StatusOK, HistoryResponse{
		Success: true,
		Data:    list.Items,
		Count:   len(list.Items),
		Total:   list.TotalCount,
	})
}

// Stats returns aggregate chat statistics for the authenticated user.
func (h *ChatHandler) Stats(c *gin.Context) {
	userID := middleware.UserID(c)

	stats, err := h.service.Statistics(c.Request.Context(), userID)
	if err != nil {
		logger.Errorw("failed to retrieve statistics", "user_id", userID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: "Failed to retrieve statistics"})
		return
	}

	c.JSON(http.StatusOK, StatsResponse{Success: true, Data: stats})
}
