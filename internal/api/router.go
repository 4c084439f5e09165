package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baharkarakas/franchise-backend/internal/api/handlers"
	"github.com/baharkarakas/franchise-backend/internal/auth"
	"github.com/baharkarakas/franchise-backend/internal/config"
	"github.com/baharkarakas/franchise-backend/internal/middleware"
	"github.com/baharkarakas/franchise-backend/internal/models"
	"github.com/baharkarakas/franchise-backend/internal/services"
)

type RouterDeps struct {
	Cfg           config.Config
	Clock         clockwork.Clock
	Tokens        *auth.TokenManager
	DB            handlers.Pinger
	Users         *services.UserService
	Franchises    *services.FranchiseService
	Balances      *services.BalanceService
	Bookings      *services.BookingService
	Payments      *services.PaymentService
	Notifications *services.NotificationService
	// StreamsDone ends every SSE stream once closed; see http.Server.RegisterOnShutdown.
	StreamsDone <-chan struct{}
}

func NewRouter(d RouterDeps) http.Handler {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	authH := handlers.NewAuthHandler(d.Users)
	franchiseH := &handlers.FranchiseHandler{Franchises: d.Franchises}
	userH := &handlers.UserHandler{Users: d.Users}
	balanceH := &handlers.BalanceHandler{Balances: d.Balances}
	bookingH := &handlers.BookingHandler{Bookings: d.Bookings}
	paymentH := &handlers.PaymentHandler{Payments: d.Payments}
	notifH := &handlers.NotificationHandler{Notifications: d.Notifications, Clock: d.Clock, Heartbeat: d.Cfg.SSEHeartbeat, Done: d.StreamsDone}
	healthH := &handlers.HealthHandler{DB: d.DB}
	am := middleware.NewAuthMiddleware(d.Tokens)

	managers := middleware.RequireRole(models.RoleAdmin, models.RoleOwner)
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleOwner, models.RoleTrainer)
	clients := middleware.RequireRole(models.RoleClient)
	admins := middleware.RequireRole(models.RoleAdmin)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.RateLimit(d.Cfg.RateRPS, d.Cfg.RateBurst))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))
	r.Use(middleware.HTTPMetrics)

	r.Get("/health", healthH.Health)
	r.Get("/ready", healthH.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", authH.Register)
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/refresh", authH.Refresh)
		r.Post("/webhooks/payments", paymentH.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(am.Auth)

			r.Get("/me", authH.Me)

			r.Route("/franchises", func(r chi.Router) {
				r.With(admins).Get("/", franchiseH.List)
				r.With(admins).Post("/", franchiseH.Create)
				r.Get("/{id}", franchiseH.Get)
				r.With(managers).Patch("/{id}", franchiseH.Update)
				r.With(admins).Post("/{id}/deactivate", franchiseH.Deactivate)
			})

			r.Route("/users", func(r chi.Router) {
				r.With(staff).Get("/", userH.List)
				r.With(managers).Post("/", userH.Create)
				r.Get("/{id}", userH.Get)
				r.With(managers).Delete("/{id}", userH.Delete)
			})
			r.Get("/trainers", userH.Trainers)

			r.Route("/balances", func(r chi.Router) {
				r.Get("/me", balanceH.Mine)
				r.Get("/{userID}", balanceH.Get)
				r.Get("/{userID}/ledger", balanceH.Ledger)
				r.With(managers).Post("/{userID}/adjust", balanceH.Adjust)
			})

			r.Get("/packages", paymentH.ListPackages)
			r.With(managers).Post("/packages", paymentH.CreatePackage)
			r.With(managers).Delete("/packages/{id}", paymentH.ArchivePackage)
			r.With(clients).Post("/payments/checkout", paymentH.Checkout)
			r.Get("/payments", paymentH.List)

			r.Route("/bookings", func(r chi.Router) {
				r.Get("/", bookingH.List)
				r.With(clients).Post("/", bookingH.Create)
				r.Get("/{id}", bookingH.Get)
				r.With(staff).Post("/{id}/confirm", bookingH.Confirm)
				r.Post("/{id}/cancel", bookingH.Cancel)
				r.With(staff).Post("/{id}/complete", bookingH.Complete)
				r.With(managers).Post("/{id}/refund", bookingH.Refund)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notifH.List)
				r.Get("/unread-count", notifH.UnreadCount)
				r.Get("/stream", notifH.Stream)
				r.Post("/read-all", notifH.MarkAllRead)
				r.Post("/{id}/read", notifH.MarkRead)
			})
		})
	})

	return r
}
