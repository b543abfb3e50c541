package controllers

import (
	"net/http"

	"checkout-service/apperrors"
	"checkout-service/checkout"
	"checkout-service/models"

	"github.com/gin-gonic/gin"
)

type CheckoutController struct {
	page   *checkout.Page
	orders checkout.OrderReader
}

func NewCheckoutController(page *checkout.Page, orders checkout.OrderReader) *CheckoutController {
	return &CheckoutController{page: page, orders: orders}
}

type orderItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

type orderResponse struct {
	OrderID  string              `json:"order_id"`
	Status   string              `json:"status"`
	Total    string              `json:"total"`
	Shipping models.ShippingInfo `json:"shipping"`
	Items    []orderItemResponse `json:"items"`
}

// View renders the checkout page, or a redirect for guests.
func (cc *CheckoutController) View(c *gin.Context) {
	v, err := cc.page.View(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (cc *CheckoutController) UpdateShipping(c *gin.Context) {
	var info models.ShippingInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		c.Error(apperrors.WithMessage(apperrors.ErrBadRequest, "invalid payload"))
		return
	}
	saved, err := cc.page.UpdateShipping(c.Request.Context(), info)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (cc *CheckoutController) CreateOrder(c *gin.Context) {
	orderID, err := cc.page.CreateOrder(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order_id": orderID, "status": models.OrderStatusPending})
}

// GetOrder returns one of the caller's draft orders.
func (cc *CheckoutController) GetOrder(c *gin.Context) {
	o, err := cc.orders.GetOrder(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	resp := orderResponse{
		OrderID: o.ID.String(),
		Status:  o.Status,
		Total:   o.Total.StringFixed(2),
		Shipping: models.ShippingInfo{
			FullName:   o.ShippingName,
			Address:    o.ShippingAddress,
			City:       o.ShippingCity,
			PostalCode: o.ShippingPostal,
		},
		Items: make([]orderItemResponse, 0, len(o.OrderItems)),
	}
	for _, it := range o.OrderItems {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price.StringFixed(2),
		})
	}
	c.JSON(http.StatusOK, resp)
}
