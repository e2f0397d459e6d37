package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/dermaai/internal/domain/chatbot"
	apperrors "github.com/yanqian/dermaai/pkg/errors"
)

// Chat answers one message of the caller's conversation.
func (h *Handler) Chat(c *gin.Context) {
	claims, ok := h.requireClaims(c)
	if !ok {
		return
	}
	var req chatbot.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidRequest, errMessage(err), err))
		return
	}

	resp, err := h.chatSvc.Reply(c.Request.Context(), sessionKey(claims), req)
	if err != nil {
		abortWithError(c, fromAppError(err, codeChatFailed))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ChatHistory returns the retained turns.
func (h *Handler) ChatHistory(c *gin.Context) {
	claims, ok := h.requireClaims(c)
	if !ok {
		return
	}
	turns, err := h.chatSvc.History(c.Request.Context(), sessionKey(claims))
	if err != nil {
		abortWithError(c, fromAppError(err, codeChatFailed))
		return
	}
	if turns == nil {
		turns = []chatbot.ChatTurn{}
	}
	c.JSON(http.StatusOK, gin.H{"history": turns})
}

// ResetChat forgets the conversation.
func (h *Handler) ResetChat(c *gin.Context) {
	claims, ok := h.requireClaims(c)
	if !ok {
		return
	}
	if err := h.chatSvc.Reset(c.Request.Context(), sessionKey(claims)); err != nil {
		abortWithError(c, fromAppError(err, codeChatFailed))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
