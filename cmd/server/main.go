package main // Entry point package

import (
	"context" // Context for the background sweepers
	"log"     // Logging library
	"time"    // Durations for the policy windows

	"github.com/joho/godotenv"    // Loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/course-registration/internal/booking"    // Reservation, pricing and waitlist engine
	"github.com/iliyamo/course-registration/internal/config"     // Internal config loader
	"github.com/iliyamo/course-registration/internal/database"   // MySQL connection helper
	"github.com/iliyamo/course-registration/internal/handler"    // HTTP handlers
	"github.com/iliyamo/course-registration/internal/queue"      // RabbitMQ audit consumer
	"github.com/iliyamo/course-registration/internal/repository" // SQL-backed store
	"github.com/iliyamo/course-registration/internal/router"     // Internal router setup
	queue_publisher "github.com/iliyamo/course-registration/internal/service" // Event publisher
	"github.com/iliyamo/course-registration/internal/storage"    // Payment proof storage
)

func main() {
	// Load .env if present; real environments set variables directly.
	_ = godotenv.Load()
	cfg := config.Load() // Load environment config

	// Connect to MySQL; the store owns all transactional access.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	store := repository.NewStore(db)

	// Redis backs the response cache and the checkout rate limiter.  A nil
	// client disables both rather than failing startup.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; response cache and rate limiting disabled")
	}

	// Registration events flow through RabbitMQ.  The publisher emits
	// order/waitlist events; the consumer appends them to the audit log.
	notifier := queue_publisher.New()
	go queue.StartAuditConsumer()

	// Assemble the engine with the configured policy windows.
	waitlist := booking.NewWaitlistManager(store, notifier, time.Duration(cfg.OfferWindowHours)*time.Hour)
	lifecycle := booking.NewOrderLifecycle(store, waitlist, notifier, time.Duration(cfg.PaymentWindowHours)*time.Hour)

	proofs, err := storage.NewDiskProofStore(cfg.ProofDir)
	if err != nil {
		log.Fatalf("proof store: %v", err)
	}

	h := router.Handlers{
		Availability: handler.NewAvailabilityHandler(store),
		Orders:       handler.NewOrderHandler(store, lifecycle),
		Proofs:       handler.NewProofHandler(lifecycle, proofs, int64(cfg.ProofMaxBytes)),
		Waitlist:     handler.NewWaitlistHandler(store, waitlist),
		Admin:        handler.NewAdminOrderHandler(lifecycle),
	}

	e := echo.New() // Create Echo instance
	router.RegisterRoutes(e)
	router.RegisterPublic(e, h, rdb)
	router.RegisterAPI(e, h, cfg, rdb)

	// Background sweeps: expired payment deadlines cancel orders and free
	// capacity; lapsed waitlist offers pass the slot to the next in line.
	sweep := time.Duration(cfg.SweepIntervalSec) * time.Second
	go lifecycle.RunSweeper(context.Background(), sweep, log.Printf)
	go waitlist.RunSweeper(context.Background(), sweep, log.Printf)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
