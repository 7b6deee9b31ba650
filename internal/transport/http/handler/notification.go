package handler

import (
	"github.com/gin-gonic/gin"

	"legiseye/internal/app"
	"legiseye/internal/transport/http/response"
)

const defaultNotificationLimit = 50

type NotificationHandler struct {
	notificationService *app.NotificationService
}

func NewNotificationHandler(notificationService *app.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List supports ?unread=true and ?limit=N.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	unread := c.Query("unread") == "true" || c.Query("unread") == "1"
	list, err := h.notificationService.List(userID, unread, queryInt(c, "limit", defaultNotificationLimit))
	if err != nil {
		response.FromError(c, err, "list notifications failed")
		return
	}
	response.OK(c, list)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	count, err := h.notificationService.UnreadCount(userID)
	if err != nil {
		response.FromError(c, err, "count notifications failed")
		return
	}
	response.OK(c, gin.H{"unread": count})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(userID, id); err != nil {
		response.FromError(c, err, "mark notification read failed")
		return
	}
	response.OK(c, gin.H{"id": id})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	n, err := h.notificationService.MarkAllRead(userID)
	if err != nil {
		response.FromError(c, err, "mark notifications read failed")
		return
	}
	response.OK(c, gin.H{"updated": n})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.Delete(userID, id); err != nil {
		response.FromError(c, err, "delete notification failed")
		return
	}
	response.OK(c, gin.H{"deleted_notification_id": id})
}
