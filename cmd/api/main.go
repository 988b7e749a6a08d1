package main

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/planora-app/planora/internal/admin"
	"github.com/planora-app/planora/internal/auth"
	"github.com/planora-app/planora/internal/booking"
	"github.com/planora-app/planora/internal/chat"
	"github.com/planora-app/planora/internal/config"
	"github.com/planora-app/planora/internal/db"
	"github.com/planora-app/planora/internal/events"
	"github.com/planora-app/planora/internal/middleware"
	"github.com/planora-app/planora/internal/notify"
	"github.com/planora-app/planora/internal/setup"
	"github.com/planora-app/planora/internal/vendor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	auth.InitJWT(cfg.JWTSecret, cfg.JWTExpireHr)
	db.Init(cfg)
	notify.InitQueue(cfg.RedisAddr)
	defer notify.CloseQueue()

	publisher, err := events.Connect(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		log.Printf("[events] broker unavailable, continuing without it: %v", err)
	}
	defer publisher.Close()

	dispatcher := notify.NewDispatcher(notify.NewStore(), notify.QueueEmailer{})
	registry := chat.NewRegistry(chat.NewStore(), dispatcher)
	bookingSvc := booking.NewService(
		booking.NewRepository(),
		setup.Checker{},
		dispatcher,
		registry,
		publisher,
		time.Duration(cfg.BookingExpiryHours)*time.Hour,
	)

	bookingH := booking.NewHandler(bookingSvc)
	chatH := chat.NewHandler(registry)
	notifyH := notify.NewHandler(dispatcher)

	e := echo.New()
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(echomw.CORS())

	// Public
	e.POST("/api/auth/signup", auth.Signup)
	e.POST("/api/auth/login", auth.Login)
	e.GET("/api/vendors", vendor.ListPublic)
	e.GET("/api/vendors/:id", vendor.GetPublicProfile)

	// Authenticated
	api := e.Group("/api", middleware.JWTMiddleware)
	api.GET("/me", auth.Me)

	// Vendor onboarding
	v := api.Group("/vendor", middleware.RequireRoles("vendor"))
	v.GET("/setup", setup.GetMySetup)
	v.GET("/profile", vendor.GetMyProfile)
	v.PUT("/profile", vendor.UpdateMyProfile)
	v.GET("/services", vendor.ListMyServices)
	v.POST("/services", vendor.CreateService)
	v.PUT("/services/:id", vendor.UpdateService)
	v.DELETE("/services/:id", vendor.DeleteService)
	v.GET("/hours", vendor.GetMyHours)
	v.PUT("/hours", vendor.SetMyHours)
	v.GET("/gallery", vendor.ListMyGallery)
	v.POST("/gallery", vendor.AddGalleryItem)
	v.DELETE("/gallery/:id", vendor.RemoveGalleryItem)
	v.GET("/faqs", vendor.ListMyFAQs)
	v.POST("/faqs", vendor.AddFAQ)
	v.DELETE("/faqs/:id", vendor.RemoveFAQ)

	// Bookings
	api.POST("/bookings", bookingH.Create, middleware.RequireRoles("client"))
	api.GET("/bookings", bookingH.List)
	api.GET("/bookings/:id", bookingH.Get)
	api.POST("/bookings/:id/accept", bookingH.Accept, middleware.RequireRoles("vendor"))
	api.POST("/bookings/:id/decline", bookingH.Decline, middleware.RequireRoles("vendor"))
	api.POST("/bookings/:id/cancel", bookingH.Cancel)
	api.POST("/bookings/:id/complete", bookingH.Complete, middleware.RequireRoles("vendor"))

	// Conversations
	api.POST("/conversations", chatH.Open)
	api.GET("/conversations", chatH.List)
	api.GET("/conversations/:id/messages", chatH.ListMessages)
	api.POST("/conversations/:id/messages", chatH.SendMessage)
	api.POST("/conversations/:id/read", chatH.MarkRead)
	api.GET("/conversations/unread-count", chatH.UnreadCount)

	// Notifications
	api.GET("/notifications", notifyH.List)
	api.POST("/notifications/:id/read", notifyH.MarkRead)
	api.POST("/notifications/read-all", notifyH.MarkAllRead)
	api.GET("/notifications/unread-count", notifyH.UnreadCount)

	// Admin
	adm := api.Group("/admin", middleware.RequireRoles("admin"))
	adm.GET("/stats", admin.Stats)
	adm.GET("/vendors/:id/setup", setup.GetVendorSetup)
	adm.GET("/users", admin.ListUsers)
	adm.GET("/bookings", admin.ListBookings)
	adm.POST("/users/:id/suspend", admin.SuspendUser)
	adm.POST("/users/:id/activate", admin.ActivateUser)

	log.Printf("Planora API listening on :%s", cfg.HTTPPort)
	e.Logger.Fatal(e.Start(":" + cfg.HTTPPort))
}
