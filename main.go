package main

import (
	"context"
	"log"
	"time"

	"github.com/Govind-619/FarmMart/config"
	"github.com/Govind-619/FarmMart/controllers"
	"github.com/Govind-619/FarmMart/events"
	"github.com/Govind-619/FarmMart/mpesa"
	"github.com/Govind-619/FarmMart/revocation"
	"github.com/Govind-619/FarmMart/routes"
	"github.com/Govind-619/FarmMart/services"
	"github.com/Govind-619/FarmMart/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	// Load environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Error loading config:", err)
	}

	// Initialize logger
	if err := utils.InitLogger(utils.LoggerOptions{
		Dir:    cfg.Log.Dir,
		MaxAge: cfg.Log.MaxAge,
		Level:  cfg.Log.Level,
	}); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	utils.InitAuth(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	if err := utils.InitIDGenerator(cfg.NodeID); err != nil {
		log.Fatal("Failed to initialize order id generator:", err)
	}
	if err := utils.RegisterValidators(); err != nil {
		log.Fatal("Failed to register validators:", err)
	}

	// Initialize database
	if err := config.InitDB(cfg.DB); err != nil {
		utils.LogError("Error connecting to database: %v", err)
		log.Fatal("Error connecting to database:", err)
	}

	store := newRevocationStore(cfg.Redis)
	publisher, closePublisher := newPublisher(cfg.RabbitMQ)
	defer closePublisher()

	var mailer utils.Mailer = utils.NopMailer{}
	if cfg.SMTP.Host != "" {
		mailer = utils.NewSMTPMailer(utils.EmailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	} else {
		utils.LogWarn("SMTP_HOST not set; farmer e-mails are disabled")
	}

	gateway := mpesa.NewClient(mpesa.Config{
		BaseURL:         cfg.Mpesa.BaseURL,
		ConsumerKey:     cfg.Mpesa.ConsumerKey,
		ConsumerSecret:  cfg.Mpesa.ConsumerSecret,
		ShortCode:       cfg.Mpesa.ShortCode,
		Passkey:         cfg.Mpesa.Passkey,
		CallbackURL:     cfg.Mpesa.CallbackURL,
		TransactionDesc: cfg.Mpesa.TransactionDesc,
		Timeout:         cfg.Mpesa.Timeout,
	})

	callbacks := services.NewCallbackService(config.DB, publisher, mailer)
	defer callbacks.Wait()

	controllers.Init(controllers.Deps{
		Payments:        services.NewPaymentService(config.DB, gateway),
		Callbacks:       callbacks,
		Orders:          services.NewOrderService(config.DB),
		Checkout:        services.NewCheckoutService(config.DB),
		Revocations:     store,
		ReconcileCutoff: cfg.Reconcile.Cutoff,
	})

	router := routes.SetupRouter(store, utils.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst))

	utils.LogInfo("Server starting on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		utils.LogError("Error starting server: %v", err)
		log.Fatal("Error starting server:", err)
	}
}

// newRevocationStore uses redis when REDIS_ADDR is set and the database otherwise.
func newRevocationStore(cfg config.RedisConfig) revocation.Store {
	if cfg.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := client.Ping(ctx).Err()
		if err == nil {
			utils.LogInfo("Token revocation backed by redis at %s", cfg.Addr)
			return revocation.NewRedisStore(client)
		}
		utils.LogError("Redis at %s unreachable, falling back to database revocation: %v", cfg.Addr, err)
		client.Close()
	}

	store := revocation.NewGormStore(config.DB)
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			n, err := store.Purge(context.Background())
			if err != nil {
				utils.LogError("Failed to purge revoked tokens: %v", err)
				continue
			}
			if n > 0 {
				utils.LogDebug("Purged %d expired revoked tokens", n)
			}
		}
	}()
	return store
}

func newPublisher(cfg config.RabbitMQConfig) (events.Publisher, func()) {
	if cfg.URL == "" {
		utils.LogWarn("RABBITMQ_URL not set; payment events are not published")
		return events.NopPublisher{}, func() {}
	}
	pub, err := events.DialAMQP(cfg.URL, cfg.Exchange)
	if err != nil {
		utils.LogError("RabbitMQ unavailable, payment events are not published: %v", err)
		return events.NopPublisher{}, func() {}
	}
	return pub, func() {
		if err := pub.Close(); err != nil {
			utils.LogError("Failed to close RabbitMQ connection: %v", err)
		}
	}
}
