package controllers

import (
	"net/http"
	"strings"

	"checkout-service/apperrors"
	"checkout-service/auth"
	"checkout-service/cart"
	"checkout-service/logger"
	"checkout-service/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CartController struct {
	store cart.Store
}

func NewCartController(store cart.Store) *CartController {
	return &CartController{store: store}
}

type cartResponse struct {
	Items []models.CartItem `json:"items"`
	Total string            `json:"total"`
}

func respondCart(c *gin.Context, items []models.CartItem) {
	if items == nil {
		items = []models.CartItem{}
	}
	c.JSON(http.StatusOK, cartResponse{Items: items, Total: cart.Total(items).StringFixed(2)})
}

// GetCart returns the current cart for a user
func (cc *CartController) GetCart(c *gin.Context) {
	userID := currentUserID(c)
	items, err := cc.store.Items(c.Request.Context(), userID)
	if err != nil {
		logger.Error(c, "get cart failed", err, zap.String("user_id", userID))
		c.Error(apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	respondCart(c, items)
}

// AddItem merges the item into the cart by id
func (cc *CartController) AddItem(c *gin.Context) {
	var item models.CartItem
	if err := c.ShouldBindJSON(&item); err != nil {
		logger.Warn(c, "invalid cart item payload", zap.Error(err))
		c.Error(apperrors.WithMessage(apperrors.ErrBadRequest, "invalid payload"))
		return
	}
	item.ID = strings.TrimSpace(item.ID)
	if item.ID == "" {
		c.Error(apperrors.WithMessage(apperrors.ErrBadRequest, "invalid payload"))
		return
	}

	userID := currentUserID(c)
	updated, err := cc.store.Add(c.Request.Context(), userID, item)
	if err != nil {
		logger.Error(c, "add cart item failed", err, zap.String("user_id", userID))
		c.Error(apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	respondCart(c, updated.Items)
}

func (cc *CartController) RemoveItem(c *gin.Context) {
	userID := currentUserID(c)
	updated, err := cc.store.Remove(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		logger.Error(c, "remove cart item failed", err, zap.String("user_id", userID))
		c.Error(apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	if updated == nil {
		c.Error(apperrors.WithMessage(apperrors.ErrNotFound, "cart not found"))
		return
	}
	respondCart(c, updated.Items)
}

func (cc *CartController) ClearCart(c *gin.Context) {
	userID := currentUserID(c)
	if err := cc.store.Clear(c.Request.Context(), userID); err != nil {
		logger.Error(c, "clear cart failed", err, zap.String("user_id", userID))
		c.Error(apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	c.Status(http.StatusNoContent)
}

func currentUserID(c *gin.Context) string {
	if u := auth.FromContext(c.Request.Context()).User; u != nil {
		return u.UID
	}
	return ""
}
