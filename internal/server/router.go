// Package server assembles the gin engine and the HTTP server around it.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"storefront/internal/auth"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/ratelimit"
	"storefront/internal/store"
)

// Deps carries everything the routes need.
type Deps struct {
	Auth          *auth.Service
	Cart          store.CartRepository
	Wishlist      store.WishlistRepository
	Products      store.ProductRepository
	Categories    store.CategoryRepository
	Orders        store.OrderRepository
	Subscriptions store.SubscriptionRepository
	Contacts      store.ContactRepository
	Mail          handlers.EmailSender
	Limiter       ratelimit.Limiter
	Ping          func(ctx context.Context) error
	Logger        zerolog.Logger
}

// NewRouter creates and configures the gin engine.
func NewRouter(d Deps) *gin.Engine {
	limiter := d.Limiter
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(d.Logger))

	r.GET("/health", handlers.Health(d.Ping))

	api := r.Group("/api")
	protected := middleware.UserAuth(d.Auth)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", middleware.RateLimit(limiter, "signup"), handlers.Signup(d.Auth))
		authGroup.POST("/login", middleware.RateLimit(limiter, "login"), handlers.Login(d.Auth))
		authGroup.POST("/verify-otp", middleware.RateLimit(limiter, "verify-otp"), handlers.VerifyOTP(d.Auth))
		authGroup.POST("/resend-otp", middleware.RateLimit(limiter, "resend-otp"), handlers.ResendOTP(d.Auth))
		authGroup.POST("/send-otp", middleware.RateLimit(limiter, "send-otp"), handlers.SendPhoneOTP(d.Auth))
		authGroup.POST("/google-signup", handlers.GoogleSignup(d.Auth))
		authGroup.POST("/google-login", handlers.GoogleLogin(d.Auth))
		authGroup.POST("/forgot-password", middleware.RateLimit(limiter, "forgot-password"), handlers.ForgotPassword(d.Auth))
		authGroup.POST("/reset-password/:token", handlers.ResetPassword(d.Auth))
		authGroup.GET("/me", protected, handlers.GetMe(d.Auth))
		authGroup.POST("/logout", protected, handlers.Logout(d.Auth))
	}

	products := api.Group("/products")
	{
		products.GET("", handlers.GetProducts(d.Products))
		products.GET("/categories", handlers.GetCategories(d.Categories))
		products.GET("/search", handlers.SearchProducts(d.Products))
		products.GET("/category/:category", handlers.GetProductsByCategory(d.Products))
		products.GET("/bulk", handlers.GetProductsBulk(d.Products))
		products.GET("/:id", handlers.GetProductByID(d.Products))
	}

	cart := api.Group("/cart", protected)
	{
		cart.GET("", handlers.GetCart(d.Cart))
		cart.POST("", handlers.AddToCart(d.Cart))
		cart.DELETE("/remove/:productId", handlers.RemoveFromCart(d.Cart))
		cart.PUT("/update/:productId", handlers.UpdateCartQuantity(d.Cart))
		cart.DELETE("/clear", handlers.ClearCart(d.Cart))
	}

	wishlist := api.Group("/wishlist", protected)
	{
		wishlist.GET("", handlers.GetWishlist(d.Wishlist))
		wishlist.POST("", handlers.AddToWishlist(d.Wishlist))
		wishlist.DELETE("/remove/:productId", handlers.RemoveFromWishlist(d.Wishlist))
		wishlist.GET("/check/:productId", handlers.CheckWishlist(d.Wishlist))
	}

	api.POST("/order", protected, handlers.PlaceOrder(d.Orders, d.Mail))
	api.GET("/orders", protected, handlers.GetMyOrders(d.Orders))
	api.GET("/orders/:userId", protected, handlers.GetUserOrders(d.Orders))

	api.POST("/subscribe", protected, handlers.Subscribe(d.Subscriptions, d.Mail))
	api.POST("/contact", handlers.SubmitContact(d.Contacts))

	admin := api.Group("/admin", protected, middleware.RequireRole(models.RoleAdmin))
	{
		admin.POST("/products", handlers.CreateProduct(d.Products))
		admin.PUT("/products/:id", handlers.UpdateProduct(d.Products))
		admin.DELETE("/products/:id", handlers.DeleteProduct(d.Products))

		admin.GET("/categories", handlers.GetAllCategories(d.Categories))
		admin.POST("/categories", handlers.CreateCategory(d.Categories))
		admin.DELETE("/categories/:id", handlers.DeleteCategory(d.Categories))

		admin.GET("/orders", handlers.GetAllOrders(d.Orders))
		admin.DELETE("/orders/:id", handlers.DeleteOrder(d.Orders))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})

	return r
}

// WithCORS wraps h so that browsers on origins may call the API.
func WithCORS(h http.Handler, origins []string) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})(h)
}
