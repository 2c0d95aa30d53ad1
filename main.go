package main

import (
	"context"
	"log"
	"os"

	"app/cache"
	"app/config"
	"app/database"
	"app/forecast"
	"app/handlers"
	"app/middleware"
	"app/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	// Load configuration
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	// Set up the application configuration
	config.AppConfig.JWTSecret = jwtSecret
	config.Load()
	middleware.JWTSecret = []byte(jwtSecret)

	// Initialize database
	database.Connect(databaseURL)
	defer database.Close()

	// Pick the cache backend. Without Redis the service still works off an
	// in-process store, it just cannot share cached forecasts across
	// instances.
	var store cache.Store
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisStore, err := cache.NewRedisStore(context.Background(), redisURL)
		if err != nil {
			log.Fatalf("Unable to connect to Redis: %v", err)
		}
		defer redisStore.Close()
		store = redisStore
		log.Println("Successfully connected to Redis")
	} else {
		store = cache.NewMemoryStore()
		log.Println("REDIS_URL not set, using in-process forecast cache")
	}

	// Wire the forecasting engine
	salesRepo := database.NewSalesRepo(database.GetDB())
	forecastCache := forecast.NewCache(store, forecast.CacheTTLs{
		Model:    config.AppConfig.ForecastModelTTL,
		Forecast: config.AppConfig.ForecastResultTTL,
		Data:     config.AppConfig.ForecastDataTTL,
	})
	engine := forecast.NewEngine(salesRepo, forecastCache, forecast.NewHoltFitter(), forecast.Config{
		HistoryDays:   config.AppConfig.ForecastHistoryDays,
		MinActiveDays: config.AppConfig.ForecastMinActiveDays,
		FitTimeout:    config.AppConfig.ForecastFitTimeout,
	})
	handlers.Setup(engine)

	app := fiber.New()

	// Add CORS middleware
	app.Use(cors.New())

	// Setup routes
	routes.SetupRoutes(app)

	// Start server
	log.Fatal(app.Listen(":3000"))
}
