// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/artime/artime-backend/internal/config"
	"github.com/artime/artime-backend/internal/handlers"
	"github.com/artime/artime-backend/internal/middleware"
	"github.com/artime/artime-backend/internal/services"
	"github.com/artime/artime-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *gin.Engine {
	// Initialize services
	notificationService := services.NewNotificationService(db, cfg)
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize storage service")
	}
	stripeGateway := services.NewStripeGateway(cfg)

	authService := services.NewAuthService(db, cfg, notificationService)
	bookingService := services.NewBookingService(db, cfg, logger)
	negotiationService := services.NewNegotiationService(db, logger)
	settlementService := services.NewSettlementService(db, cfg, logger)
	contractService := services.NewContractService(db, cfg, storageService, settlementService, logger)
	paymentService := services.NewPaymentService(db, stripeGateway, logger)
	cancellationService := services.NewCancellationService(db, stripeGateway, logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	bookingHandler := handlers.NewBookingHandler(bookingService, negotiationService, contractService, settlementService)
	cancellationHandler := handlers.NewCancellationHandler(cancellationService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", middleware.AuthRequired(), authHandler.Logout)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/forgot-password", authHandler.ForgotPassword)
			auth.POST("/reset-password", authHandler.ResetPassword)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Artist representation routes
		representations := v1.Group("/representations")
		representations.Use(middleware.AuthRequired())
		{
			representations.POST("", authHandler.GrantRepresentation)
			representations.DELETE("/:artist_id/:manager_id", authHandler.RevokeRepresentation)
		}

		// Booking routes
		bookings := v1.Group("/bookings")
		bookings.Use(middleware.AuthRequired())
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("", bookingHandler.ListBookings)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.POST("/:id/publish", bookingHandler.PublishBooking)
			bookings.POST("/:id/complete", bookingHandler.CompleteBooking)

			// Negotiation
			bookings.GET("/:id/messages", bookingHandler.GetMessages)
			bookings.POST("/:id/messages", bookingHandler.SendMessage)
			bookings.POST("/:id/final-offer", bookingHandler.SendFinalOffer)
			bookings.POST("/:id/accept", bookingHandler.AcceptBooking)
			bookings.POST("/:id/reject", bookingHandler.RejectBooking)

			// Cancellation
			bookings.POST("/:id/cancel", cancellationHandler.CancelBooking)

			// Contract and settlement
			bookings.GET("/:id/contract", bookingHandler.GetContract)
			bookings.POST("/:id/contract/sign", bookingHandler.SignContract)
			bookings.GET("/:id/split", bookingHandler.GetSplit)

			// Payments
			bookings.GET("/:id/milestones", paymentHandler.ListMilestones)
		}

		// Milestone payment routes
		milestones := v1.Group("/milestones")
		milestones.Use(middleware.AuthRequired(), middleware.PaymentRateLimit())
		{
			milestones.POST("/:id/intent", paymentHandler.CreateMilestoneIntent)
		}

		payments := v1.Group("/payments")
		payments.Use(middleware.AuthRequired(), middleware.PaymentRateLimit())
		{
			payments.POST("/confirm", paymentHandler.ConfirmPayment)
		}

		// Cancellation case routes
		cancellations := v1.Group("/cancellations")
		cancellations.Use(middleware.AuthRequired())
		{
			cancellations.GET("/:id", cancellationHandler.GetCase)
		}

		// Notification routes
		notifications := v1.Group("/notifications")
		notifications.Use(middleware.AuthRequired())
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			adminCancellations := admin.Group("/cancellations")
			{
				adminCancellations.GET("", cancellationHandler.ListOpenCases)
				adminCancellations.POST("/:id/resolve", cancellationHandler.ResolveCase)
				adminCancellations.POST("/:id/execute", cancellationHandler.ExecuteResolution)
			}
		}
	}

	// Static file serving (for development)
	if cfg.Environment == "development" {
		r.Static("/uploads", "./uploads")
	}

	return r
}
