package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/placement-sarthi/placement-api/internal/models"
	"github.com/placement-sarthi/placement-api/internal/service"
	"github.com/placement-sarthi/placement-api/pkg/response"
)

// MessageHandler exposes the contact form and the admin inbox.
type MessageHandler struct {
	messages *service.MessageService
}

// NewMessageHandler constructs MessageHandler.
func NewMessageHandler(messages *service.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

type messageStatusRequest struct {
	Status models.MessageStatus `json:"status"`
}

// Submit godoc
// @Summary Send a contact message
// @Tags Messages
// @Accept json
// @Produce json
// @Param payload body service.SubmitMessageRequest true "Message"
// @Success 201 {object} response.Envelope
// @Router /messages [post]
func (h *MessageHandler) Submit(c *gin.Context) {
	var req service.SubmitMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.messages.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}

// List godoc
// @Summary List contact messages
// @Tags Messages
// @Produce json
// @Param status query string false "unread, read or replied"
// @Param search query string false "Search sender or subject"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /messages [get]
func (h *MessageHandler) List(c *gin.Context) {
	filter := models.MessageFilter{Search: strings.TrimSpace(c.Query("search"))}
	filter.Page, filter.PageSize = pageParams(c)
	if raw := c.Query("status"); raw != "" {
		status := models.MessageStatus(strings.ToLower(raw))
		filter.Status = &status
	}
	messages, pagination, err := h.messages.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, pagination)
}

// UnreadCount godoc
// @Summary Number of unread messages
// @Tags Messages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /messages/unread-count [get]
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	count, err := h.messages.UnreadCount(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"unread": count}, nil)
}

// Get godoc
// @Summary Get contact message
// @Tags Messages
// @Produce json
// @Param id path string true "Message ID"
// @Success 200 {object} response.Envelope
// @Router /messages/{id} [get]
func (h *MessageHandler) Get(c *gin.Context) {
	msg, err := h.messages.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, msg, nil)
}

// UpdateStatus godoc
// @Summary Mark a message read or replied
// @Tags Messages
// @Accept json
// @Produce json
// @Param id path string true "Message ID"
// @Param payload body messageStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Router /messages/{id}/status [patch]
func (h *MessageHandler) UpdateStatus(c *gin.Context) {
	var req messageStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.messages.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, msg, nil)
}

// Delete godoc
// @Summary Delete contact message
// @Tags Messages
// @Param id path string true "Message ID"
// @Success 204 {string} string ""
// @Router /messages/{id} [delete]
func (h *MessageHandler) Delete(c *gin.Context) {
	if err := h.messages.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
