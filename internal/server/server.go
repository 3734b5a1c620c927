// Package server assembles the Fiber application: middleware, the error
// envelope and every route.
package server

import (
	"strings"

	"solar-inventory-backend/internal/admininventory"
	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/audit"
	"solar-inventory-backend/internal/auth"
	"solar-inventory-backend/internal/catalog"
	"solar-inventory-backend/internal/config"
	"solar-inventory-backend/internal/dashboard"
	"solar-inventory-backend/internal/lock"
	"solar-inventory-backend/internal/logging"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/objectstore"
	"solar-inventory-backend/internal/sales"
	"solar-inventory-backend/internal/stockrequest"
	"solar-inventory-backend/internal/stockreturn"
	"solar-inventory-backend/internal/txlog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Deps struct {
	Config *config.Config
	// DB must be the same handle as database.DB; the auth and catalog
	// handlers read the global.
	DB     *gorm.DB
	Logger *logrus.Logger
	Locker lock.Locker
	Store  objectstore.Store
}

func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: apperr.Handler(d.Logger),
		BodyLimit:    int(objectstore.MaxImageBytes) + 1<<20,
	})
	app.Use(recover.New())
	app.Use(logging.RequestLogger(d.Logger))

	corsOrigins := strings.Split(d.Config.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	if d.Config.StorageProvider != "gcs" {
		app.Static("/uploads", d.Config.UploadPath)
	}

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-super-admin", auth.RegisterSuperAdminHandler())
	api.Post("/auth/login", auth.LoginHandler(d.Config))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(d.Config))

	protected.Get("/auth/me", auth.MeHandler())

	// Users
	protected.Get("/users", auth.RequireRole(models.RoleSuperAdmin, models.RoleAdmin), auth.ListUsersHandler())
	protected.Post("/users", auth.RequireRole(models.RoleSuperAdmin, models.RoleAdmin), auth.CreateUserHandler())

	// Catalog
	superAdmin := auth.RequireRole(models.RoleSuperAdmin)
	protected.Get("/products", catalog.ListProductsHandler())
	protected.Get("/products/:id", catalog.GetProductHandler())
	protected.Post("/products", superAdmin, catalog.CreateProductHandler())
	protected.Post("/products/import", superAdmin, catalog.ImportProductsHandler())
	protected.Put("/products/:id", superAdmin, catalog.UpdateProductHandler())
	protected.Delete("/products/:id", superAdmin, catalog.DeleteProductHandler())
	protected.Post("/products/:id/stock", superAdmin, catalog.AdjustStockHandler())
	protected.Get("/categories", catalog.ListCategoriesHandler())
	protected.Post("/categories", superAdmin, catalog.CreateCategoryHandler())

	// Stock movement
	db := d.DB
	admininventory.NewHandler(admininventory.NewService(db, d.Logger)).Register(protected)
	stockrequest.NewHandler(stockrequest.NewService(db, d.Logger, d.Locker), d.Store).Register(protected)
	stockreturn.NewHandler(stockreturn.NewService(db, d.Logger)).Register(protected)
	sales.NewHandler(sales.NewService(db, d.Logger), d.Store).Register(protected)

	// Dashboard
	protected.Get("/dashboard/stock-chart", dashboard.StockChartHandler())
	protected.Get("/dashboard/stock-overview", dashboard.StockOverviewHandler())

	// History
	txns := txlog.NewHandler(db, d.Logger)
	protected.Get("/inventory-transactions", txns.List())
	protected.Get("/inventory-transactions/export", txns.Export())
	protected.Get("/audit-logs", auth.RequireRole(models.RoleSuperAdmin, models.RoleAdmin), audit.ListAuditLogsHandler())

	return app
}
