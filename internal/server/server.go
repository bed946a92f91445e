package server

import (
	"log"
	"os"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"streamdoc-engine/internal/bootstrap"
	"streamdoc-engine/internal/config"
	"streamdoc-engine/internal/pkg/serverutils"
	"streamdoc-engine/internal/websocket"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:    10 * 1024 * 1024, // 10MB
		ErrorHandler: serverutils.NewErrorHandler(container.Logger),
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	// Routes
	registerRoutes(app, container)
	registerWebsocket(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("✅ Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")

	c.StreamController.RegisterRoutes(api)
	c.CellController.RegisterRoutes(api)
}

func registerWebsocket(app *fiber.App, c *bootstrap.Container) {
	app.Use("/ws", func(ctx *fiber.Ctx) error {
		if !fiberws.IsWebSocketUpgrade(ctx) {
			return fiber.ErrUpgradeRequired
		}

		// Browsers cannot set Authorization headers on websocket upgrades,
		// so the token rides in the query string.
		userId, err := parseWsToken(ctx.Query("token"))
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
		}
		ctx.Locals("user_id", userId)
		return ctx.Next()
	})

	app.Get("/ws/stream/:id", fiberws.New(func(conn *fiberws.Conn) {
		userId, _ := conn.Locals("user_id").(uuid.UUID)
		streamId, err := uuid.Parse(conn.Params("id"))
		if err != nil {
			conn.Close()
			return
		}
		websocket.ServeWs(c.WebSocketHub, conn, userId, streamId)
	}))
}

func parseWsToken(tokenStr string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, jwt.ErrTokenMalformed
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, jwt.ErrTokenInvalidClaims
	}

	rawId, _ := claims["user_id"].(string)
	return uuid.Parse(rawId)
}
