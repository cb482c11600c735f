package router

import (
	"net/http"

	"smartdecor/config"
	"smartdecor/internal/handler"
	"smartdecor/internal/logger"
	"smartdecor/internal/metrics"
	"smartdecor/internal/middleware"
	"smartdecor/internal/repository"
	"smartdecor/internal/service"
	"smartdecor/internal/ws"
	"smartdecor/pkg/cloudinary"
	"smartdecor/pkg/mailer"
	"smartdecor/pkg/payment"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the process-level collaborators built in main. Pusher, Media and Limiter may be nil.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	Metrics  *metrics.Metrics
	Provider payment.Provider
	Mailer   mailer.Mailer
	Pusher   service.Pusher
	Media    cloudinary.Client
	Limiter  middleware.RateLimiter
	Hub      *ws.Hub
}

func Setup(d Deps) *gin.Engine {
	cfg := d.Config
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	r := gin.New()
	r.Use(logger.RequestID(), logger.GinMiddleware(d.Log), logger.Recovery(d.Log), d.Metrics.GinMiddleware())
	r.Use(cors.New(corsConfig(cfg.Server.CORSAllowOrigins)))

	// Repositories
	userRepo := repository.NewUserRepository(d.DB)
	categoryRepo := repository.NewCategoryRepository(d.DB)
	productRepo := repository.NewProductRepository(d.DB)
	cartRepo := repository.NewCartRepository(d.DB)
	orderRepo := repository.NewOrderRepository(d.DB)
	paymentRepo := repository.NewPaymentRepository(d.DB)
	notificationRepo := repository.NewNotificationRepository(d.DB)

	// Services
	mailSvc := service.NewMailService(d.Mailer, cfg.SMTP.OrdersInbox, d.Log)
	notifSvc := service.NewNotificationService(notificationRepo, userRepo, d.Pusher, d.Log)
	authSvc := service.NewAuthService(cfg, d.DB, userRepo, mailSvc, d.Log)
	userSvc := service.NewUserService(userRepo)
	catalogSvc := service.NewCatalogService(d.DB, categoryRepo, productRepo, d.Media, d.Log)
	cartSvc := service.NewCartService(cartRepo, productRepo)
	orderSvc := service.NewOrderService(d.DB, orderRepo, mailSvc, notifSvc, d.Log)
	sitemapSvc := service.NewSitemapService(productRepo, cfg.Site.BaseURL)
	var hub service.Broadcaster
	if d.Hub != nil {
		hub = d.Hub
	}
	paymentSvc := service.NewPaymentService(d.DB, paymentRepo, d.Provider, d.Log,
		service.WithPaymentMetrics(d.Metrics),
		service.WithPaymentNotifier(service.NewPaymentEvents(orderRepo, notifSvc, hub, d.Log)),
	)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, d.Log)
	googleOAuthHandler := handler.NewGoogleOAuthHandler(&cfg.OAuth, authSvc, d.Log)
	userHandler := handler.NewUserHandler(userSvc, d.Log)
	catalogHandler := handler.NewCatalogHandler(catalogSvc, d.Log)
	cartHandler := handler.NewCartHandler(cartSvc, d.Log)
	orderHandler := handler.NewOrderHandler(orderSvc, d.Log)
	mpesaHandler := handler.NewMpesaHandler(paymentSvc, orderSvc, d.Log)
	mpesaWebhookHandler := handler.NewMpesaWebhookHandler(paymentSvc, d.Log)
	notificationHandler := handler.NewNotificationHandler(notifSvc, d.Log)
	sitemapHandler := handler.NewSitemapHandler(sitemapSvc, d.Log)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to Smart Indoor Decors API"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	r.GET("/sitemap.xml", sitemapHandler.Get)
	if d.Hub != nil {
		r.GET("/ws/payments", ws.UpgradePaymentsWS(&cfg.JWT, d.Hub, d.Log))
	}

	api := r.Group("/api/v1")
	// provider webhook; registered before the rate limiter
	api.POST("/payments/mpesa/callback", mpesaWebhookHandler.Handle)

	if d.Limiter != nil {
		api.Use(middleware.RateLimit(d.Limiter, d.Log))
	}
	authRequired := middleware.AuthRequired(&cfg.JWT)
	adminOnly := middleware.AdminRequired()

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/forgot-password", authHandler.ForgotPassword)
		authGroup.POST("/reset-password", authHandler.ResetPassword)
		authGroup.PUT("/password", authRequired, authHandler.ChangePassword)
		authGroup.GET("/google", googleOAuthHandler.Redirect)
		authGroup.GET("/google/callback", googleOAuthHandler.Callback)
		authGroup.POST("/google/token", googleOAuthHandler.Token)
	}

	users := api.Group("/users", authRequired)
	{
		users.GET("/me", userHandler.Me)
		users.PUT("/me", userHandler.UpdateMe)
		users.POST("/me/fcm-token", userHandler.RegisterFCMToken)
		users.GET("", adminOnly, userHandler.List)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Delete)
	}

	categories := api.Group("/categories")
	{
		categories.GET("", catalogHandler.ListCategories)
		categories.GET("/:id", catalogHandler.GetCategory)
		categories.POST("", authRequired, adminOnly, catalogHandler.CreateCategory)
		categories.PUT("/:id", authRequired, adminOnly, catalogHandler.UpdateCategory)
		categories.DELETE("/:id", authRequired, adminOnly, catalogHandler.DeleteCategory)
	}

	products := api.Group("/products")
	{
		products.GET("", catalogHandler.ListProducts)
		products.GET("/:id", catalogHandler.GetProduct)
		products.POST("", authRequired, adminOnly, catalogHandler.CreateProduct)
		products.PUT("/:id", authRequired, adminOnly, catalogHandler.UpdateProduct)
		products.DELETE("/:id", authRequired, adminOnly, catalogHandler.DeleteProduct)
		products.POST("/:id/media", authRequired, adminOnly, catalogHandler.UploadMedia)
		products.DELETE("/:id/media/:media_id", authRequired, adminOnly, catalogHandler.DeleteMedia)
	}

	cart := api.Group("/cart", authRequired)
	{
		cart.POST("", cartHandler.Create)
		cart.GET("", cartHandler.Get)
		cart.DELETE("", cartHandler.Delete)
		cart.POST("/items", cartHandler.AddItem)
		cart.PUT("/items", cartHandler.UpdateItem)
		cart.DELETE("/items/:product_id", cartHandler.RemoveItem)
	}

	orders := api.Group("/orders", authRequired)
	{
		orders.POST("", orderHandler.Create)
		orders.GET("", orderHandler.List)
		orders.GET("/me", orderHandler.ListMine)
		orders.GET("/:id", orderHandler.Get)
		orders.PUT("/:id", orderHandler.Update)
		orders.DELETE("/:id", orderHandler.Delete)
		orders.GET("/:id/payments", mpesaHandler.ListByOrder)
	}

	payments := api.Group("/payments", authRequired)
	{
		payments.POST("/mpesa/stk-push", mpesaHandler.Initiate)
		payments.GET("/:checkout_request_id", mpesaHandler.GetByCheckoutID)
	}

	notifications := api.Group("/notifications", authRequired)
	{
		notifications.GET("", notificationHandler.List)
		notifications.PUT("/:id/read", notificationHandler.MarkRead)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", "X-Request-ID")
	c.ExposeHeaders = []string{"X-Request-ID"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
