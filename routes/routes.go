package routes

import (
	"checkout-service/controllers"
	"checkout-service/middleware"

	"github.com/gin-gonic/gin"
)

type Controllers struct {
	Cart          *controllers.CartController
	Checkout      *controllers.CheckoutController
	Payment       *controllers.PaymentController
	Notifications *controllers.NotificationController
	Health        *controllers.HealthController
}

// RegisterRoutes mounts the API on r. The auth state middleware must already
// be installed; the checkout group handles guests itself.
func RegisterRoutes(r *gin.Engine, ctrl Controllers) {
	controllers.RegisterValidators()

	r.GET("/health", ctrl.Health.Health)

	cart := r.Group("/cart")
	cart.Use(middleware.RequireUser())
	{
		cart.GET("", ctrl.Cart.GetCart)
		cart.POST("/items", ctrl.Cart.AddItem)
		cart.DELETE("/items/:id", ctrl.Cart.RemoveItem)
		cart.DELETE("", ctrl.Cart.ClearCart)
	}

	checkout := r.Group("/checkout")
	{
		checkout.GET("", ctrl.Checkout.View)
		checkout.PUT("/shipping", ctrl.Checkout.UpdateShipping)
		checkout.POST("/orders", ctrl.Checkout.CreateOrder)
		checkout.POST("/payments", ctrl.Payment.Pay)
	}

	orders := r.Group("/checkout/orders/:id")
	orders.Use(middleware.RequireUser())
	{
		orders.GET("", ctrl.Checkout.GetOrder)
	}

	attempts := r.Group("/checkout/payments/:id")
	attempts.Use(middleware.RequireUser())
	{
		attempts.GET("", ctrl.Payment.Status)
		attempts.POST("/confirm", ctrl.Payment.Confirm)
		attempts.POST("/dismiss", ctrl.Payment.Dismiss)
	}

	notifications := r.Group("/notifications")
	notifications.Use(middleware.RequireUser())
	{
		notifications.GET("", ctrl.Notifications.Drain)
	}
}
