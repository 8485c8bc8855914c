package main

import (
	"aeterna/internal/attractions"
	"aeterna/internal/camara"
	"aeterna/internal/config"
	"aeterna/internal/handlers"
	"aeterna/internal/logging"
	"aeterna/internal/maas"
	"aeterna/internal/metrics"
	"aeterna/internal/middleware"
	"aeterna/internal/persona"
	"aeterna/internal/preflight"
	"aeterna/internal/services"
	"aeterna/pkg/auth"
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Aeterna analytics server...")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	log.Printf("📋 Configuration loaded (Port: %s, Environment: %s, CAMARA mock: %v)", cfg.Port, cfg.Environment, cfg.Camara.UseMock)

	appMetrics := metrics.New(prometheus.DefaultRegisterer)

	// Identity tokens
	identityTokens, err := auth.NewIdentityTokens(cfg.Auth.JWTSecret, cfg.Auth.JWTAlgorithm, 0)
	if err != nil {
		log.Fatalf("❌ Failed to initialize identity tokens: %v", err)
	}

	// Optional Redis: shared assistant ids and cross-instance session rooms
	var redisService *services.RedisService
	var pubsubService *services.PubSubService
	var resourceStore maas.ResourceStore
	if cfg.RedisURL != "" {
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable, falling back to in-memory state: %v", err)
			redisService = nil
		} else {
			resourceStore = maas.NewRedisResourceStore(redisService.Client())
			log.Println("✅ Assistant ids shared through Redis")
		}
	}

	// Telco transport and clients
	transport := camara.NewTransport(cfg.Camara, camara.WithMetrics(appMetrics))
	camaraClient := camara.NewClient(transport, cfg.Camara)
	orchestrator := maas.NewOrchestrator(transport, maas.EndpointsFromConfig(cfg.MaaS), resourceStore, appMetrics)
	log.Printf("✅ CAMARA transport ready (mode: %s)", transport.Mode())

	directory := persona.NewDirectory(cfg.PersonaSeedPath, identityTokens)
	catalogue := attractions.NewCatalogue(cfg.AttractionsPath)

	composer := services.NewAnalyticsChatService(
		directory,
		catalogue,
		orchestrator,
		camaraClient,
		cfg.DefaultPersona,
		cfg.Demo,
		appMetrics,
	)

	// Pre-flight checks
	var redisPinger preflight.Pinger
	if redisService != nil {
		redisPinger = redisService
	}
	checker := preflight.NewChecker(directory, catalogue, transport, redisPinger, cfg.DefaultPersona, cfg.Camara.DensityScope)
	if preflight.HasFailures(checker.RunAll(context.Background())) {
		log.Fatal("❌ Pre-flight checks failed, refusing to start")
	}

	// Periodic operator probe, reported on /health
	var probeService *services.OperatorProbeService
	if cfg.OperatorProbeCron != "" {
		probeService, err = services.NewOperatorProbeService(cfg.OperatorProbeCron, func(ctx context.Context) error {
			_, err := camaraClient.ListQoSProfiles(ctx)
			return err
		})
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		if err := probeService.Start(); err != nil {
			log.Printf("⚠️  Operator probe disabled: %v", err)
			probeService = nil
		}
	}

	hub := services.NewSessionHub(appMetrics)
	if redisService != nil {
		pubsubService = services.NewPubSubService(redisService, uuid.New().String())
		pubsubService.OnSessionEvent(hub.HandleRemote)
		if err := pubsubService.Start(); err != nil {
			log.Printf("⚠️  Failed to start session pub/sub: %v", err)
			pubsubService = nil
		} else {
			hub.SetPublisher(pubsubService)
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      "Aeterna Analytics v1.0",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    4 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prom := fiberprometheus.New("aeterna")
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Public=%d/min, Chat=%d/min, WS=%d/min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.PublicReadMax,
		rateLimitConfig.ChatMax,
		rateLimitConfig.WebSocketMax,
	)

	allowedOrigins := strings.Join(cfg.CORSOrigins, ",")
	allowCredentials := allowedOrigins != "*"
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Session-ID",
		AllowCredentials: allowCredentials,
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", allowedOrigins)

	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))

	// Handlers
	var operatorStatus handlers.OperatorStatus
	if probeService != nil {
		operatorStatus = probeService
	}
	healthHandler := handlers.NewHealthHandler(hub, transport.Mode(), operatorStatus)
	chatHandler := handlers.NewAnalyticsChatHandler(composer, hub)
	personaHandler := handlers.NewPersonaHandler(directory, cfg.IsProduction())
	attractionHandler := handlers.NewAttractionHandler(catalogue)
	camaraHandler := handlers.NewCamaraHandler(camaraClient)
	sessionSocketHandler := handlers.NewSessionSocketHandler(hub)
	timeWeaveHandler := handlers.NewTimeWeaveHandler()

	app.Get("/healthz", healthHandler.Liveness)
	app.Get("/health", healthHandler.Handle)

	identity := middleware.OptionalIdentityMiddleware(identityTokens)
	chatLimiter := middleware.ChatRateLimiter(rateLimitConfig)
	app.Post("/analytics-chat", chatLimiter, identity, chatHandler.Handle)
	app.Post("/api/analytics-chat", chatLimiter, identity, chatHandler.Handle)

	publicRead := middleware.PublicReadRateLimiter(rateLimitConfig)
	api := app.Group("/api")
	api.Get("/personas", publicRead, personaHandler.List)
	api.Post("/personas/:key/token", personaHandler.IssueToken)

	api.Get("/attractions", publicRead, attractionHandler.List)
	api.Get("/attractions/export", publicRead, attractionHandler.Export)
	api.Get("/attractions/:id", publicRead, attractionHandler.Get)

	camaraRoutes := api.Group("/camara")
	camaraRoutes.Get("/qos-profiles", publicRead, camaraHandler.QoSProfiles)
	camaraRoutes.Post("/sim-swap", camaraHandler.SimSwap)
	camaraRoutes.Post("/location", camaraHandler.Location)
	camaraRoutes.Post("/population-density", camaraHandler.PopulationDensity)
	camaraRoutes.Post("/quality-on-demand", camaraHandler.QualityOnDemand)

	// WebSocket routes
	upgradeOnly := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			c.Locals("client_ip", c.IP())
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
	wsConfig := websocket.Config{Origins: cfg.CORSOrigins}
	wsConnectionLimiter := middleware.WebSocketRateLimiter(rateLimitConfig)

	app.Use("/analytics-socket", upgradeOnly, wsConnectionLimiter)
	app.Get("/analytics-socket", websocket.New(sessionSocketHandler.Handle, wsConfig))

	app.Use("/time-weave", upgradeOnly, wsConnectionLimiter)
	app.Get("/time-weave", websocket.New(timeWeaveHandler.Handle, wsConfig))

	log.Printf("✅ Server ready on port %s", cfg.Port)
	log.Printf("💬 Analytics chat: http://localhost:%s/analytics-chat", cfg.Port)
	log.Printf("🔌 Session socket: ws://localhost:%s/analytics-socket", cfg.Port)
	log.Printf("🕰️  Time-Weave stream: ws://localhost:%s/time-weave", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if probeService != nil {
			if err := probeService.Stop(); err != nil {
				log.Printf("⚠️ Error stopping operator probe: %v", err)
			}
		}

		if pubsubService != nil {
			if err := pubsubService.Stop(); err != nil {
				log.Printf("⚠️ Error stopping PubSub: %v", err)
			}
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}

		if redisService != nil {
			if err := redisService.Close(); err != nil {
				log.Printf("⚠️ Error closing Redis: %v", err)
			}
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
