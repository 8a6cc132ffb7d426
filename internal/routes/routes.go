package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saeid-a/CoachPayBack/internal/config"
	"github.com/saeid-a/CoachPayBack/internal/handlers"
	"github.com/saeid-a/CoachPayBack/internal/middleware"
	"github.com/saeid-a/CoachPayBack/internal/repository"
	"github.com/saeid-a/CoachPayBack/internal/services"
	ledgerws "github.com/saeid-a/CoachPayBack/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	planRepo := repository.NewPlanRepository(db)
	eventRepo := repository.NewEventRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	configRepo := repository.NewCommissionConfigRepository(db)
	coachPaymentRepo := repository.NewCoachPaymentRepository(db)

	ledgerHub := ledgerws.NewHub()
	go ledgerHub.Run()

	reconciliationService := services.NewReconciliationService(clientRepo, eventRepo)
	paymentService := services.NewPaymentService(paymentRepo, clientRepo, reconciliationService)
	commissionService := services.NewCommissionService(
		paymentRepo,
		configRepo,
		coachPaymentRepo,
		clientRepo,
		userRepo,
		ledgerHub,
	)

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	clientHandler := handlers.NewClientHandler(clientRepo)
	planHandler := handlers.NewPlanHandler(planRepo, clientRepo)
	eventHandler := handlers.NewEventHandler(eventRepo)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	commissionHandler := handlers.NewCommissionHandler(commissionService)
	ledgerFeedHandler := handlers.NewLedgerFeedHandler(ledgerHub, cfg.JWTSecret)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	clients := authProtected.Group("/clients")
	clients.Post("", clientHandler.CreateClient)
	clients.Get("", clientHandler.ListClients)
	clients.Put("/:id/plan", planHandler.AssignPlan)

	plans := authProtected.Group("/plans")
	plans.Post("", planHandler.CreatePlan)
	plans.Get("", planHandler.ListPlans)

	events := authProtected.Group("/events")
	events.Post("", eventHandler.CreateEvent)
	events.Get("", eventHandler.ListEvents)
	events.Post("/:id/register", eventHandler.Register)

	payments := authProtected.Group("/payments")
	payments.Post("", paymentHandler.CreatePayment)
	payments.Get("/history", paymentHandler.GetHistory)
	payments.Put("/:id/status", paymentHandler.UpdateStatus)

	coaches := authProtected.Group("/coaches")
	coaches.Get("/:id/commission-config", commissionHandler.GetConfig)
	coaches.Put("/:id/commission-config", commissionHandler.UpsertConfig)
	coaches.Get("/:id/commission/pending", commissionHandler.GetPending)

	coachPayments := authProtected.Group("/coach-payments")
	coachPayments.Post("", commissionHandler.CreateCoachPayment)
	coachPayments.Get("", commissionHandler.ListCoachPayments)
	coachPayments.Put("/:id/status", commissionHandler.UpdateCoachPaymentStatus)

	api.Use("/v1/ws", ledgerFeedHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(ledgerFeedHandler.HandleWebSocket))
}
