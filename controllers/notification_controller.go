package controllers

import (
	"net/http"

	"checkout-service/notify"

	"github.com/gin-gonic/gin"
)

// Inboxes is satisfied by *notify.Hub.
type Inboxes interface {
	Drain(userID string) notify.Inbox
}

type NotificationController struct {
	inboxes Inboxes
}

func NewNotificationController(inboxes Inboxes) *NotificationController {
	return &NotificationController{inboxes: inboxes}
}

// Drain hands the caller its queued notices and pending redirect. Each
// notice is delivered once.
func (nc *NotificationController) Drain(c *gin.Context) {
	c.JSON(http.StatusOK, nc.inboxes.Drain(currentUserID(c)))
}
