package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type Router struct {
	authController      *controller.AuthController
	productController   *controller.ProductController
	categoryController  *controller.CategoryController
	cartController      *controller.CartController
	orderController     *controller.OrderController
	discountController  *controller.DiscountController
	websocketController *controller.WebSocketController
	authMiddleware      *middleware.AuthMiddleware
	config              *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	productController *controller.ProductController,
	categoryController *controller.CategoryController,
	cartController *controller.CartController,
	orderController *controller.OrderController,
	discountController *controller.DiscountController,
	websocketController *controller.WebSocketController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:      authController,
		productController:   productController,
		categoryController:  categoryController,
		cartController:      cartController,
		orderController:     orderController,
		discountController:  discountController,
		websocketController: websocketController,
		authMiddleware:      authMiddleware,
		config:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Storefront API is running",
		})
	})

	authenticated := r.authMiddleware.Authenticate()
	optional := r.authMiddleware.OptionalAuthenticate()
	admin := r.authMiddleware.RequireAdmin()

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/refresh", r.authController.RefreshToken)
			auth.POST("/logout", authenticated, r.authController.Logout)
			auth.GET("/me", authenticated, r.authController.GetMe)
			auth.PUT("/me", authenticated, r.authController.UpdateMe)
		}

		products := v1.Group("/products")
		{
			products.GET("", optional, r.productController.GetProducts)
			products.GET("/:id", optional, r.productController.GetProduct)
			products.POST("", authenticated, admin, r.productController.CreateProduct)
			products.PUT("/:id", authenticated, admin, r.productController.UpdateProduct)
			products.DELETE("/:id", authenticated, admin, r.productController.DeleteProduct)
		}

		categories := v1.Group("/categories")
		{
			categories.GET("", optional, r.categoryController.GetCategories)
			categories.GET("/:id", r.categoryController.GetCategory)
			categories.POST("", authenticated, admin, r.categoryController.CreateCategory)
			categories.PUT("/:id", authenticated, admin, r.categoryController.UpdateCategory)
			categories.DELETE("/:id", authenticated, admin, r.categoryController.DeleteCategory)
		}

		cart := v1.Group("/cart")
		cart.Use(authenticated)
		{
			cart.GET("", r.cartController.GetCart)
			cart.GET("/summary", r.cartController.GetCartSummary)
			cart.POST("/items", r.cartController.AddToCart)
			cart.PUT("/items/:id", r.cartController.UpdateCartItem)
			cart.DELETE("/items/:id", r.cartController.RemoveFromCart)
			cart.DELETE("", r.cartController.ClearCart)
			cart.POST("/merge", r.cartController.MergeGuestCart)
		}

		orders := v1.Group("/orders")
		orders.Use(authenticated)
		{
			orders.GET("", r.orderController.GetOrders)
			orders.POST("", r.orderController.CreateOrder)
			orders.GET("/summary", admin, r.orderController.GetOrdersSummary)
			orders.GET("/search", admin, r.orderController.SearchOrders)
			orders.GET("/monthly-sales", admin, r.orderController.GetMonthlySales)
			orders.POST("/export", admin, r.orderController.ExportOrders)
			orders.GET("/number/:number", r.orderController.GetOrderByNumber)
			orders.GET("/:id", r.orderController.GetOrderByID)
			orders.PUT("/:id/status", admin, r.orderController.UpdateOrderStatus)
		}

		offers := v1.Group("/offers")
		{
			offers.GET("", r.discountController.GetActiveOffers)
			offers.POST("/validate", authenticated, r.discountController.ValidateOffer)
		}

		discounts := v1.Group("/discounts")
		discounts.Use(authenticated)
		{
			discounts.POST("/apply", r.discountController.ApplyDiscount)
			discounts.GET("/:order_id", r.discountController.GetOrderDiscount)
			discounts.DELETE("/:order_id", r.discountController.RemoveDiscount)
		}

		adminOffers := v1.Group("/admin/offers")
		adminOffers.Use(authenticated, admin)
		{
			adminOffers.GET("", r.discountController.ListOffers)
			adminOffers.GET("/:id", r.discountController.GetOffer)
			adminOffers.POST("", r.discountController.CreateOffer)
			adminOffers.PUT("/:id", r.discountController.UpdateOffer)
			adminOffers.DELETE("/:id", r.discountController.DeactivateOffer)
		}

		v1.GET("/ws/orders", authenticated, r.websocketController.OrderEvents)
	}

	return router
}

// corsMiddleware allows the configured origins. An empty list allows all, for local development.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = allowedOrigins
	}
	return cors.New(cfg)
}
