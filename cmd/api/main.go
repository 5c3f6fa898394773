package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/rmoralesv/viviendas-api/docs" // Swagger docs
	"github.com/rmoralesv/viviendas-api/internal/config"
	"github.com/rmoralesv/viviendas-api/internal/database"
	"github.com/rmoralesv/viviendas-api/internal/datasync"
	"github.com/rmoralesv/viviendas-api/internal/handlers"
	"github.com/rmoralesv/viviendas-api/internal/jobs"
	"github.com/rmoralesv/viviendas-api/internal/middleware"
	"github.com/rmoralesv/viviendas-api/internal/permissions"
	"github.com/rmoralesv/viviendas-api/internal/readmodel"
	"github.com/rmoralesv/viviendas-api/internal/repository"
	"github.com/rmoralesv/viviendas-api/internal/services"
	"github.com/rmoralesv/viviendas-api/internal/softdelete"
	"github.com/rmoralesv/viviendas-api/internal/storage"
	"github.com/rmoralesv/viviendas-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// @title Viviendas API
// @version 1.0
// @description REST API para la gestión de ventas y recaudo de viviendas

// @contact.name API Support

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	// Initialize storage
	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	logger.Info("Initialized local storage")

	// Initialize repositories
	repos := repository.NewRepositories(db)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Read model and its debounced invalidator. Services notify the
	// invalidator on every write; the aggregator reloads shortly after.
	agg := readmodel.NewAggregator(repos)
	invalidator := datasync.NewInvalidator(
		time.Duration(cfg.SyncDebounceMs)*time.Millisecond, agg.Reload)

	// Undo window for destructive endpoints
	undo := softdelete.NewScheduler(time.Duration(cfg.UndoWindowSeconds) * time.Second)

	// Initialize services
	svcs := services.NewServices(repos, worker, invalidator, cfg, db)

	// Schedule recurring jobs
	scheduleJobs(worker, svcs, agg)

	// Initialize handlers
	h := handlers.NewHandlers(svcs, store, agg, undo)

	// Setup router
	router := setupRouter(h, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Commit pending deletes, flush the invalidator, stop the worker
	undo.Shutdown()
	invalidator.Close()
	worker.Shutdown()
	logger.Info("Background worker stopped")

	// Flush Sentry events before exit
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Redirect root to swagger
		router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
		})

		// Swagger documentation
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

		// Health check (public)
		v1.GET("/health", h.Health.Index)

		// Authentication (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
			auth.POST("/logout", h.Auth.Logout)
		}

		// Protected routes (requires authentication)
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			// User management (admin only, except own profile operations)
			admin := protected.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				admin.GET("/users", h.User.Index)
				admin.POST("/users", h.User.Create)
				admin.DELETE("/users/:user_id", h.User.Delete)
				admin.POST("/users/:user_id/restore", h.User.Restore)
				admin.PUT("/users/:user_id/toggle_status", h.User.ToggleStatus)
				admin.GET("/jobs/status", h.Job.Status)
			}

			protected.GET("/users/me/permissions", h.User.MyPermissions)
			protected.GET("/users/:user_id", middleware.RequireAdminOrOwner(), h.User.Show)
			protected.PUT("/users/:user_id", middleware.RequireAdminOrOwner(), h.User.Update)
			protected.PATCH("/users/:user_id/change_password", h.User.ChangePassword)

			// Proyectos
			proyectos := protected.Group("/proyectos")
			{
				proyectos.GET("", middleware.RequirePermission(permissions.ModuleProyectos, permissions.ActionVer), h.Proyecto.Index)
				proyectos.GET("/:proyecto_id", middleware.RequirePermission(permissions.ModuleProyectos, permissions.ActionVer), h.Proyecto.Show)
				proyectos.POST("", middleware.RequirePermission(permissions.ModuleProyectos, permissions.ActionCrear), h.Proyecto.Create)
				proyectos.PUT("/:proyecto_id", middleware.RequirePermission(permissions.ModuleProyectos, permissions.ActionEditar), h.Proyecto.Update)
				proyectos.DELETE("/:proyecto_id", middleware.RequirePermission(permissions.ModuleProyectos, permissions.ActionEliminar), h.Proyecto.Delete)
			}

			// Viviendas
			viviendas := protected.Group("/viviendas")
			{
				ver := middleware.RequirePermission(permissions.ModuleViviendas, permissions.ActionVer)
				editar := middleware.RequirePermission(permissions.ModuleViviendas, permissions.ActionEditar)

				viviendas.GET("", ver, h.Vivienda.Index)
				viviendas.GET("/disponibles", ver, h.Vivienda.Disponibles)
				viviendas.GET("/stats", ver, h.Vivienda.Stats)
				viviendas.GET("/:vivienda_id", ver, h.Vivienda.Show)
				viviendas.POST("", middleware.RequirePermission(permissions.ModuleViviendas, permissions.ActionCrear), h.Vivienda.Create)
				viviendas.PUT("/:vivienda_id", editar, h.Vivienda.Update)
				viviendas.POST("/:vivienda_id/archivar", editar, h.Vivienda.Archivar)
				viviendas.POST("/:vivienda_id/restaurar", editar, h.Vivienda.Restaurar)
				viviendas.DELETE("/:vivienda_id", middleware.RequirePermission(permissions.ModuleViviendas, permissions.ActionEliminar), h.Vivienda.Delete)
				viviendas.POST("/:vivienda_id/undo_delete", middleware.RequirePermission(permissions.ModuleViviendas, permissions.ActionEliminar), h.Vivienda.UndoDelete)
			}

			// Clientes
			clientes := protected.Group("/clientes")
			{
				ver := middleware.RequirePermission(permissions.ModuleClientes, permissions.ActionVer)
				editar := middleware.RequirePermission(permissions.ModuleClientes, permissions.ActionEditar)

				clientes.GET("", ver, h.Cliente.Index)
				clientes.GET("/stats", ver, h.Cliente.Stats)
				clientes.GET("/:cliente_id", ver, h.Cliente.Show)
				clientes.GET("/:cliente_id/abonos", ver, h.Cliente.Abonos)
				clientes.GET("/:cliente_id/resumen", ver, h.Cliente.Resumen)
				clientes.POST("", middleware.RequirePermission(permissions.ModuleClientes, permissions.ActionCrear), h.Cliente.Create)
				clientes.PUT("/:cliente_id", editar, h.Cliente.Update)
				clientes.POST("/:cliente_id/hitos", editar, h.Cliente.CompletarHito)
				clientes.POST("/:cliente_id/reactivar", editar, h.Cliente.Reactivar)
				clientes.POST("/:cliente_id/archivar", editar, h.Cliente.Archivar)
				clientes.DELETE("/:cliente_id", middleware.RequirePermission(permissions.ModuleClientes, permissions.ActionEliminar), h.Cliente.Delete)
				clientes.POST("/:cliente_id/undo_delete", middleware.RequirePermission(permissions.ModuleClientes, permissions.ActionEliminar), h.Cliente.UndoDelete)
			}

			// Abonos
			abonos := protected.Group("/abonos")
			{
				ver := middleware.RequirePermission(permissions.ModuleAbonos, permissions.ActionVer)
				anular := middleware.RequirePermission(permissions.ModuleAbonos, permissions.ActionAnular)

				abonos.GET("", ver, h.Abono.Index)
				abonos.GET("/stats", ver, h.Abono.Stats)
				abonos.GET("/:abono_id", ver, h.Abono.Show)
				abonos.GET("/:abono_id/comprobante", ver, h.Abono.DownloadComprobante)
				abonos.POST("", middleware.RequirePermission(permissions.ModuleAbonos, permissions.ActionCrear), h.Abono.Create)
				abonos.PUT("/:abono_id", middleware.RequirePermission(permissions.ModuleAbonos, permissions.ActionEditar), h.Abono.Update)
				abonos.POST("/:abono_id/comprobante", middleware.RequirePermission(permissions.ModuleAbonos, permissions.ActionEditar), h.Abono.UploadComprobante)
				abonos.POST("/:abono_id/anular", anular, h.Abono.Anular)
				abonos.POST("/:abono_id/undo_anular", anular, h.Abono.UndoAnular)
				abonos.POST("/:abono_id/revertir", anular, h.Abono.Revertir)
			}

			// Renuncias
			renuncias := protected.Group("/renuncias")
			{
				ver := middleware.RequirePermission(permissions.ModuleRenuncias, permissions.ActionVer)
				editar := middleware.RequirePermission(permissions.ModuleRenuncias, permissions.ActionEditar)

				renuncias.GET("", ver, h.Renuncia.Index)
				renuncias.GET("/stats", ver, h.Renuncia.Stats)
				renuncias.GET("/:renuncia_id", ver, h.Renuncia.Show)
				renuncias.POST("", middleware.RequirePermission(permissions.ModuleRenuncias, permissions.ActionCrear), h.Renuncia.Create)
				renuncias.POST("/:renuncia_id/pagar", editar, h.Renuncia.MarcarPagada)
				renuncias.POST("/:renuncia_id/cancelar", editar, h.Renuncia.Cancelar)
			}

			// Reports and exports
			reports := protected.Group("/reports")
			reports.Use(middleware.RequirePermission(permissions.ModuleReportes, permissions.ActionVer))
			{
				reports.GET("/estado_cuenta_pdf", h.Report.EstadoCuentaPDF)
				reports.GET("/recibo_abono_pdf", h.Report.ReciboAbonoPDF)
				reports.GET("/recaudo_csv", h.Report.RecaudoCSV)
				reports.GET("/renuncias_csv", h.Report.RenunciasCSV)
				reports.GET("/abonos_xlsx", h.Report.AbonosXLSX)
				reports.GET("/viviendas_csv", h.Report.ViviendasCSV)
				reports.GET("/resumen_pdf", h.Report.ResumenPDF)
			}

			// Dashboard (in-memory read model)
			dashboard := protected.Group("/dashboard")
			{
				dashboard.GET("", h.Dashboard.Index)
				dashboard.GET("/viviendas", h.Dashboard.Viviendas)
				dashboard.GET("/clientes", h.Dashboard.Clientes)
			}

			// Audits
			protected.GET("/audits", middleware.RequirePermission(permissions.ModuleAuditoria, permissions.ActionVer), h.Audit.Index)

			// Notifications (users manage their own)
			// Static route first so "mark_all_as_read" is not matched as :notification_id
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", h.Notification.Index)
				notifications.POST("/mark_all_as_read", h.Notification.MarkAllAsRead)
				notifications.POST("/:notification_id/mark_as_read", h.Notification.MarkAsRead)
				notifications.GET("/:notification_id", h.Notification.Show)
				notifications.DELETE("/:notification_id", h.Notification.Delete)
			}
		}
	}

	return router
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services, agg *readmodel.Aggregator) {
	// Load the read model at startup and refresh it periodically as a safety
	// net; normal refreshes arrive through the invalidator.
	worker.ScheduleEveryImmediate(15*time.Minute, func(ctx context.Context) error {
		return agg.ReloadAll(ctx)
	})

	// Rebuild cached vivienda balances nightly
	worker.ScheduleEvery(24*time.Hour, func(ctx context.Context) error {
		logger.Info("[Job] Reconciliando balances de viviendas...")
		return svcs.Abono.ReconciliarBalances(ctx)
	})

	logger.Info("Scheduled recurring jobs")
}
