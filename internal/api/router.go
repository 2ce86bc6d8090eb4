package api

import (
	"easybills/docs"
	"easybills/internal/api/handlers"
	"easybills/internal/models"
	"easybills/internal/realtime"
	"easybills/pkg/auth"
	"easybills/pkg/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

func SetupRouter(
	authHandler *handlers.AuthHandler,
	claimHandler *handlers.ClaimHandler,
	hub *realtime.Hub,
	jwtManager *auth.JWTManager,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	// Swagger - importing the docs package registers the spec via init()
	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	authRequired := middleware.AuthMiddleware(jwtManager, appLogger)
	reviewerOnly := middleware.RequireRole(string(models.RoleAccounts), appLogger)

	// Auth routes (public)
	authGroup := app.Group("/user/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/refresh", authHandler.RefreshToken)

	// Protected routes
	protected := app.Group("/api/v1", authRequired)

	protected.Put("/users/me", authHandler.UpdateProfile)

	claims := protected.Group("/claims")
	claims.Post("", claimHandler.CreateClaim)
	claims.Get("", claimHandler.ListMyClaims)
	claims.Get("/all", reviewerOnly, claimHandler.ListAllClaims)
	claims.Get("/:id", claimHandler.GetClaim)
	claims.Put("/:id", claimHandler.ResubmitClaim)
	claims.Put("/:id/status", reviewerOnly, claimHandler.UpdateStatus)
	claims.Post("/:id/documents", claimHandler.AttachDocument)
	claims.Get("/:id/documents", claimHandler.ListDocuments)

	// Realtime updates
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", authRequired, websocket.New(hub.HandleConn))

	return app
}
