package routes

import (
	"os"
	"strings"
	"time"

	"bioharvest_back_end/internal/handlers"
	"bioharvest_back_end/internal/handlers/learning"
	"bioharvest_back_end/internal/handlers/payment"
	"bioharvest_back_end/internal/handlers/product"
	"bioharvest_back_end/internal/handlers/promo"
	"bioharvest_back_end/internal/handlers/user"
	"bioharvest_back_end/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	// CORS : origines autorisées depuis .env (séparées par des virgules)
	allowedOrigins := strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",")
	if len(allowedOrigins) == 1 && allowedOrigins[0] == "" {
		allowedOrigins = []string{"http://localhost:3000"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api", middleware.APIRateLimit())

	// --- Authentification ---
	auth := api.Group("/auth")
	{
		auth.POST("/register", middleware.RegisterRateLimit(), user.Register)
		auth.POST("/login", middleware.LoginRateLimit(), user.Login)
		auth.GET("/:provider", handlers.BeginAuth)
		auth.GET("/:provider/callback", handlers.CallbackAuth)
	}
	api.GET("/me", middleware.AuthRequired(), user.GetMe)

	// Flux OAuth sans session pour mobiles/SPA (hors du groupe /auth pour ne
	// pas entrer en conflit avec la route :provider de gothic)
	api.GET("/oauth/google/url", handlers.GetGoogleAuthURL)
	api.POST("/oauth/google/exchange", handlers.ExchangeGoogleCode)

	// --- Catalogue produits (public) ---
	products := api.Group("/products")
	{
		products.GET("", product.GetAllProducts)
		products.GET("/search", middleware.SearchRateLimit(), product.SearchProducts)
		products.GET("/:id", product.GetProduct)
		products.GET("/:id/stock", product.GetProductStock)
	}

	// --- Produits (admin) ---
	adminProducts := api.Group("/admin/products", middleware.AuthRequired(), middleware.RequireAdmin)
	{
		adminProducts.POST("", product.CreateProduct)
		adminProducts.PUT("/:id", product.UpdateProduct)
		adminProducts.DELETE("/:id", product.DeactivateProduct)
		adminProducts.POST("/:id/image", product.UploadImage)
	}

	// --- Panier ---
	cart := api.Group("/cart", middleware.AuthRequired())
	{
		cart.GET("", user.GetCart)
		cart.POST("", user.AddToCart)
		cart.PUT("/:productId", user.UpdateCartItem)
		cart.DELETE("", user.EmptyCart)
		cart.GET("/ws", user.CartWebSocket)
	}

	// --- Codes promo ---
	api.GET("/promos/validate", middleware.AuthRequired(), middleware.PromoValidateRateLimit(), promo.ValidatePromo)
	adminPromos := api.Group("/admin/promos", middleware.AuthRequired(), middleware.RequireAdmin)
	{
		adminPromos.POST("", promo.CreatePromo)
		adminPromos.GET("", promo.GetAllPromos)
		adminPromos.PUT("/:code", promo.UpdatePromo)
		adminPromos.DELETE("/:code", promo.DeactivatePromo)
	}

	// --- Paiement ---
	pay := api.Group("/payment")
	{
		pay.POST("/checkout", middleware.AuthRequired(), payment.Checkout)
		pay.POST("/course-checkout", middleware.AuthRequired(), payment.CourseCheckout)
		pay.POST("/webhook", payment.StripeWebhook)
	}

	// --- Commandes ---
	orders := api.Group("/orders", middleware.AuthRequired())
	{
		orders.GET("", user.GetMyOrders)
		orders.GET("/:id", user.GetOrderByID)
	}
	adminOrders := api.Group("/admin/orders", middleware.AuthRequired(), middleware.RequireAdmin)
	{
		adminOrders.GET("", payment.GetAllOrders)
		adminOrders.PUT("/:id/status", payment.UpdateOrderStatus)
	}

	// --- E-learning ---
	courses := api.Group("/learning/courses")
	{
		courses.GET("", learning.GetAllCourses)
		courses.GET("/search", middleware.SearchRateLimit(), learning.SearchCourses)
		courses.GET("/:id", learning.GetCourse)

		enrolled := courses.Group("", middleware.AuthRequired())
		{
			enrolled.POST("/:id/enroll", learning.Enroll)
			enrolled.PUT("/:id/progress", learning.CompleteSection)
			enrolled.POST("/:id/certificate", learning.GenerateCertificate)
			enrolled.GET("/:id/certificate", learning.DownloadCertificate)
		}
	}
	api.GET("/learning/enrollments", middleware.AuthRequired(), learning.MyEnrollments)

	adminCourses := api.Group("/admin/learning/courses", middleware.AuthRequired(), middleware.RequireAdmin)
	{
		adminCourses.POST("", learning.CreateCourse)
		adminCourses.PUT("/:id", learning.UpdateCourse)
		adminCourses.POST("/:id/publish", learning.PublishCourse)
		adminCourses.POST("/:id/sections", learning.AddSection)
		adminCourses.DELETE("/:id/sections/:sectionId", learning.RemoveSection)
	}

	// --- Vérification publique des certificats (cible du QR code) ---
	api.GET("/certificates/:id/verify", learning.VerifyCertificate)
}
