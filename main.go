package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/freightline/portal-services/handlers"
	"github.com/freightline/portal-services/internal/blob"
	"github.com/freightline/portal-services/internal/config"
	"github.com/freightline/portal-services/internal/database"
	"github.com/freightline/portal-services/internal/docstore"
	"github.com/freightline/portal-services/internal/sessions"
	"github.com/freightline/portal-services/internal/tokens"
	"github.com/freightline/portal-services/internal/uploadjobs"
	"github.com/freightline/portal-services/internal/users"
	"github.com/freightline/portal-services/pkg/logger"
	"github.com/freightline/portal-services/pkg/metrics"
	"github.com/freightline/portal-services/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// logging level controlled with LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: minio=%v mongo=%v redis=%v", os.Getenv("MINIO_ENDPOINT") != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	r := gin.New()
	r.Use(middleware.CORS())
	r.Use(gin.Logger(), gin.Recovery())

	// Connect to Redis early so the rate limiter and token blacklist can use it
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(context.Background()).Err(); err == nil {
			sessions.SetBlacklistClient(rdb)
			logger.Infof("Connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		} else {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			rdb = nil
		}
	}

	// Optional global rate limiter (per-user when authenticated, otherwise per-IP)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Object store and the document layer over it
	store, objStore := connectStore(cfg)

	// Sessions: prefer Redis (fast, TTL native), fall back to Mongo when configured
	var sessionsSvc *sessions.Service
	var mongoClient *mongo.Client
	ctx := context.Background()
	if rdb != nil {
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(rdb, "portal:session:"))
		logger.Infof("Using Redis for session storage")
	} else if cfg.MongoDB.URI != "" {
		mongoClient = connectMongoWithRetry(ctx, cfg)
		if mongoClient != nil {
			defer func() { _ = mongoClient.Disconnect(ctx) }()
			col := mongoClient.Database(cfg.MongoDB.Database).Collection("sessions")
			sessionsSvc = sessions.NewService(sessions.NewMongoRepository(col))
			logger.Infof("Using MongoDB for session storage")
		}
	}
	if sessionsSvc == nil {
		logger.Warnf("no session store configured; auth endpoints disabled")
	}

	// Accounts live in the document store itself, one document per user
	var userSvc *users.Service
	if store != nil {
		userSvc = users.NewService(store)
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		deps["storage"] = store != nil
		if store == nil {
			ready = false
		}
		deps["auth"] = sessionsSvc != nil && userSvc != nil

		if cfg.Redis.Host != "" && cfg.RateLimit.UseRedis {
			deps["redis"] = rdb != nil
			if rdb == nil {
				ready = false
			}
		} else {
			deps["redis"] = true
		}

		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	// Document API + upload relay
	if store != nil {
		handlers.NewStoreHandler(store).Register(r)
	} else {
		logger.Warnf("document routes not registered because the object store is unavailable")
	}
	if objStore != nil {
		// upload audit trail lands in Mongo when configured, best effort
		var record handlers.RecordUpload
		if cfg.MongoDB.URI != "" {
			record = func(ctx context.Context, pu *uploadjobs.PersistedUpload) error {
				return uploadjobs.Save(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database, pu)
			}
		}
		handlers.NewUploadHandler(objStore, record).Register(r)
	}

	// Auth + admin user management
	if userSvc != nil && sessionsSvc != nil {
		handlers.NewAuthHandler(cfg, userSvc, sessionsSvc).Register(r.Group("/"))

		verifier := tokens.NewVerifier(cfg.JWT.Secret)
		admin := r.Group("/api")
		admin.Use(middleware.AuthMiddleware(verifier, sessions.IsAccessTokenBlacklisted))
		admin.Use(middleware.RequireRole("admin"))
		handlers.NewUsersHandler(userSvc).Register(admin)
	} else {
		logger.Warnf("auth handlers not registered because user/sessions services are unavailable")
	}

	handlers.RegisterSwagger(r)

	// Expose Prometheus metrics
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Config summary: store=%v sessions=%v jwt_secret_set=%v", store != nil, sessionsSvc != nil, cfg.JWT.Secret != "")
	logger.Infof("Starting portal service on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}

// connectStore wires the MinIO-backed document store. Returns nils when the
// object store is not configured or unreachable; callers degrade gracefully.
func connectStore(cfg *config.Config) (*docstore.Store, *blob.MinIO) {
	mcfg := blob.LoadMinIOConfig()
	if mcfg.Endpoint == "" {
		logger.Warnf("MINIO_ENDPOINT not set; object store disabled")
		return nil, nil
	}
	objStore, err := blob.NewMinIO(mcfg)
	if err != nil {
		logger.Errorf("failed to connect to object store at %s: %v", mcfg.Endpoint, err)
		return nil, nil
	}
	logger.Infof("Connected to object store: %s (bucket %s)", mcfg.Endpoint, mcfg.Bucket)
	store := docstore.New(objStore, docstore.Config{
		Prefix:    cfg.Store.Prefix,
		Timeout:   cfg.Store.Timeout,
		ListLimit: cfg.Store.ListLimit,
	})
	return store, objStore
}

// connectMongoWithRetry tolerates startup races against the database container.
func connectMongoWithRetry(ctx context.Context, cfg *config.Config) *mongo.Client {
	const maxAttempts = 5
	backoff := time.Second
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err == nil {
			return client
		}
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return nil
}
