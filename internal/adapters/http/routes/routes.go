package routes

import (
	"time"

	"clinicdesk/internal/adapters/http/handlers"
	"clinicdesk/internal/adapters/http/middleware"
	"clinicdesk/internal/adapters/persistence/repositories"
	"clinicdesk/internal/config"
	"clinicdesk/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

const catalogCacheAge = 60 * time.Second

// Setup configures all routes for the application. It returns the background
// scheduler wired to the same services so queue closes reach SSE clients.
func Setup(app *fiber.App, repos *repositories.Repositories, cfg *config.Config) *services.QueueAutoService {
	// Initialize services
	tenantService := services.NewTenantService(repos.Users, repos.Clinics)
	authService := services.NewAuthService(repos, cfg)
	userService := services.NewUserService(repos.Users)
	patientService := services.NewPatientService(repos.Patients, repos.Records)
	catalogService := services.NewCatalogService(repos.Catalog)
	prescriptionService := services.NewPrescriptionService(repos.Prescriptions, repos.Patients)
	dashboardService := services.NewDashboardService(repos)

	hub := services.NewSSEHub()
	queueService := services.NewQueueService(repos.Queues, repos.Clinics, hub)
	autoService := services.NewQueueAutoService(queueService, authService, cfg.Cron)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg, repos.Ping)
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	patientHandler := handlers.NewPatientHandler(patientService, prescriptionService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	prescriptionHandler := handlers.NewPrescriptionHandler(prescriptionService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	queueHandler := handlers.NewQueueHandler(queueService)
	queueEventsHandler := handlers.NewQueueEventsHandler(hub)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	apiV1 := app.Group("/api/v1")

	// Auth routes (public)
	authRoutes := apiV1.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler)

	// Everything else is authenticated and bound to the caller's clinic
	protected := apiV1.Group("",
		middleware.AuthMiddleware(authService),
		middleware.ClinicScope(tenantService),
		middleware.NoCacheHeaders(),
	)

	protected.Get("/auth/me", authHandler.Me)
	protected.Post("/auth/logout-all", authHandler.LogoutAll)

	protected.Get("/dashboard", dashboardHandler.GetDashboard)
	protected.Get("/dashboard/metrics", dashboardHandler.GetMetrics)
	protected.Get("/search", patientHandler.Search)

	setupSettingsRoutes(protected.Group("/settings"), userHandler)
	setupQueueRoutes(protected.Group("/queue"), queueHandler, queueEventsHandler)
	setupPatientRoutes(protected.Group("/patients"), patientHandler)
	setupCatalogRoutes(protected, catalogHandler)
	setupPrescriptionRoutes(protected, prescriptionHandler)

	return autoService
}

// setupAuthRoutes configures public authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler) {
	router.Post("/register-clinic", middleware.AuthRateLimiter(), handler.RegisterClinic)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)
}

// setupSettingsRoutes configures password and staff account routes
func setupSettingsRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Put("/password", handler.ChangePassword)
	router.Get("/accounts", handler.ListAccounts)

	// Admin only
	router.Post("/accounts", middleware.AdminOnly(), handler.CreateAccount)
	router.Put("/accounts/:id", middleware.AdminOnly(), handler.UpdateAccount)
}

// ============================================================
// Queue Routes
// ============================================================

func setupQueueRoutes(router fiber.Router, handler *handlers.QueueHandler, events *handlers.QueueEventsHandler) {
	router.Get("/", handler.GetQueue)
	router.Get("/history", handler.GetHistory)
	router.Post("/", handler.CreateQueue)
	router.Post("/entries", handler.AddEntry)
	router.Delete("/entries/:id", handler.RemoveEntry)
	router.Post("/advance", handler.Advance)
	router.Post("/close", handler.CloseQueue)

	// Live updates
	router.Get("/events", events.Stream)
}

func setupPatientRoutes(router fiber.Router, handler *handlers.PatientHandler) {
	router.Get("/", handler.ListPatients)
	router.Post("/", handler.CreatePatient)
	router.Get("/:id", handler.GetPatient)
	router.Put("/:id", handler.UpdatePatient)
	router.Delete("/:id", handler.DeletePatient)

	router.Get("/:id/medical-records", handler.ListMedicalRecords)
	router.Post("/:id/medical-records", handler.AddMedicalRecord)
	router.Get("/:id/prescriptions", handler.ListPrescriptions)
}

// setupCatalogRoutes configures drug, drug type and dosage routes.
// Lookup lists are cacheable per user for a short time.
func setupCatalogRoutes(router fiber.Router, handler *handlers.CatalogHandler) {
	cache := middleware.PrivateCacheHeaders(catalogCacheAge)

	router.Get("/drug-types", cache, handler.ListDrugTypes)
	router.Post("/drug-types", handler.CreateDrugType)
	router.Delete("/drug-types/:id", handler.DeleteDrugType)

	router.Get("/dosages", cache, handler.ListDosages)
	router.Post("/dosages/:kind", handler.CreateDosage)
	router.Delete("/dosages/:kind/:id", handler.DeleteDosage)

	router.Get("/drugs", handler.ListDrugs)
	router.Post("/drugs", handler.CreateDrug)
	router.Get("/drugs/:id", handler.GetDrug)
	router.Put("/drugs/:id", handler.UpdateDrug)
	router.Delete("/drugs/:id", handler.DeleteDrug)
	router.Post("/drugs/:id/stocks", handler.AddStock)
}

func setupPrescriptionRoutes(router fiber.Router, handler *handlers.PrescriptionHandler) {
	router.Get("/prescriptions", handler.ListPrescriptions)
	router.Post("/prescriptions", handler.CreatePrescription)
	router.Get("/prescriptions/:id", handler.GetPrescription)
	router.Delete("/prescriptions/:id", handler.DeletePrescription)
	router.Post("/prescriptions/:id/issue", handler.IssuePrescription)
	router.Post("/prescriptions/:id/payments", handler.AddPayment)

	router.Get("/payments", handler.ListPayments)
	router.Delete("/payments/:id", handler.DeletePayment)
}
