package handlers

import (
	"errors"

	"quest-entry-service/middleware"
	"quest-entry-service/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures the HTTP surface around the entry service.
type Options struct {
	// AllowedOrigins is a comma-separated CORS list; empty means "*".
	AllowedOrigins string
	// AdminToken enables /admin/* when non-empty.
	AdminToken string
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// NewApp builds the fiber app with middleware and every route mounted.
func NewApp(svc *services.EntryService, opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "quest-entry-service",
		BodyLimit:             64 * 1024,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	origins := opts.AllowedOrigins
	if origins == "" {
		origins = "*"
	}

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(svc.Log))
	app.Use(middleware.Metrics(svc.Metrics))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		ExposeHeaders: "X-Request-ID",
		MaxAge:        86400,
	}))

	SetupEntryRoutes(app, svc)
	if opts.AdminToken != "" {
		SetupAdminRoutes(app, svc, opts.AdminToken)
	}
	if opts.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	return app
}

// SetupEntryRoutes mounts the public quest endpoints.
func SetupEntryRoutes(app *fiber.App, svc *services.EntryService) {
	app.Post("/create-entry", svc.CreateEntry)
	app.Get("/get-entries", svc.GetEntry)
	app.Get("/get-rank", svc.GetRank)
	app.Post("/update-entry", svc.UpdateEntry)
	app.Get("/healthz", svc.Health)
}

// SetupAdminRoutes mounts the operator endpoints behind the admin token.
func SetupAdminRoutes(app *fiber.App, svc *services.EntryService, token string) {
	admin := app.Group("/admin", middleware.AdminAuth(token, svc.Log))
	admin.Get("/stats", svc.AdminStats)
	admin.Post("/export", svc.AdminExport)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal server error."
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"message": msg})
}
