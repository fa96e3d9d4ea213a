package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "opsconsole/api/swagger" // swagger docs
	"opsconsole/internal/cache"
	"opsconsole/internal/config"
	"opsconsole/internal/database"
	"opsconsole/internal/handler"
	"opsconsole/internal/logger"
	"opsconsole/internal/middleware"
	"opsconsole/internal/notify"
	"opsconsole/internal/repository"
	"opsconsole/internal/service"
	"opsconsole/internal/session"
	"opsconsole/internal/validation"
	"opsconsole/internal/websocket"
	"opsconsole/internal/zoho"
)

// @title           Approval Console API
// @version         1.0
// @description     Submission, review and external sync of accounts, customers, products and price lists.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}

	log := logger.New(cfg.Env, cfg.LogLevel)
	defer func() { _ = log.Sync() }()
	gin.SetMode(cfg.GinMode)
	binding.Validator = validation.Gin()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.DB.DSN(), log)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("database handle unavailable", zap.Error(err))
	}
	log.Info("connected to PostgreSQL")

	// Redis is optional: without it locks and lookup caching stay in process,
	// which is only safe with a single replica.
	var (
		locker cache.Locker = cache.NewMemoryLocker()
		store  cache.Store  = cache.NewMemoryStore()
		rdb    *redis.Client
	)
	checks := map[string]handler.Pinger{"database": sqlDB.PingContext}
	if cfg.RedisAddr != "" {
		rdb, err = cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatal("redis connection failed", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		locker = cache.NewRedisLocker(rdb, "")
		store = cache.NewRedisStore(rdb, "lookup:")
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		log.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))
	} else {
		log.Warn("REDIS_ADDR not set, using in-process locks and cache")
	}

	zcfg := zoho.Config{
		OrganizationID: cfg.Zoho.OrganizationID,
		ClientID:       cfg.Zoho.ClientID,
		ClientSecret:   cfg.Zoho.ClientSecret,
		RefreshToken:   cfg.Zoho.RefreshToken,
		AccountsURL:    cfg.Zoho.AccountsURL,
		APIBaseURL:     cfg.Zoho.APIBaseURL,
		Timeout:        cfg.Zoho.Timeout,
		RefreshSkew:    cfg.Zoho.TokenRefreshSkew,
	}
	tokens, err := zoho.NewTokenProvider(zcfg, log)
	if err != nil {
		log.Fatal("invalid zoho configuration", zap.Error(err))
	}
	zohoClient, err := zoho.NewClient(zcfg, tokens, log)
	if err != nil {
		log.Fatal("invalid zoho configuration", zap.Error(err))
	}

	sender, err := newSender(cfg.Email, log)
	if err != nil {
		log.Fatal("email transport unavailable", zap.Error(err))
	}
	mail := notify.NewDispatcher(sender, cfg.Email.FromName, cfg.Email.FromAddress, cfg.Email.DispatchTimeout, log)

	sessions := session.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	gate := middleware.NewGate(sessions, cfg.Auth.SecureCookie)

	hub := websocket.NewHub(cfg.CORSOrigins, log)
	go hub.Run(ctx)

	// Repository -> Service -> Handler
	accounts := repository.NewAccountRepository(db)
	customers := repository.NewCustomerRepository(db)
	products := repository.NewProductRepository(db)
	priceLists := repository.NewPriceListRepository(db)
	users := repository.NewUserRepository(db)
	codes := repository.NewLoginCodeRepository(db)
	audit := repository.NewAuditRepository(db)
	tx := repository.NewTransactionManager(db)

	userService := service.NewUserService(users, audit, log)
	if err := userService.EnsureBootstrapAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminName); err != nil {
		log.Fatal("failed to bootstrap admin", zap.Error(err))
	}

	services := handler.Services{
		Accounts:   service.NewAccountService(accounts, audit, tx, log),
		Customers:  service.NewCustomerService(customers, audit, tx, log),
		Products:   service.NewProductService(products, audit, tx, cfg.Zoho.SalesAccountID, log),
		PriceLists: service.NewPriceListService(priceLists, audit, tx, log),
		Approvals: service.NewApprovalService(service.ApprovalDeps{
			Accounts:      accounts,
			Customers:     customers,
			Products:      products,
			PriceLists:    priceLists,
			Users:         users,
			Audit:         audit,
			Tx:            tx,
			Syncer:        zohoClient,
			Locker:        locker,
			Mail:          mail,
			Events:        hub,
			ApproverRoles: cfg.Auth.ApproverRoles,
			OrgName:       cfg.Email.OrgName,
			AppURL:        cfg.Email.AppURL,
			Log:           log,
		}),
		Auth:    service.NewAuthService(users, codes, audit, sessions, mail, cfg.Auth.CodeTTL, cfg.Auth.MaxAttempts, log),
		Users:   userService,
		Lookups: service.NewLookupService(zohoClient, store, cfg.Zoho.LookupCacheTTL, log),
		Audit:   service.NewAuditService(audit),
	}

	router := handler.NewRouter(handler.RouterConfig{
		Log:           log,
		Gate:          gate,
		Hub:           hub,
		CORSOrigins:   cfg.CORSOrigins,
		ApproverRoles: cfg.Auth.ApproverRoles,
		Health:        checks,
		Swagger:       !cfg.IsProduction(),
	}, services)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Approvals wait on the platform API, so leave room past its timeout.
		WriteTimeout: cfg.Zoho.Timeout*3 + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	mail.Wait()
	_ = sqlDB.Close()
}

func newSender(cfg config.EmailConfig, log *zap.Logger) (notify.Sender, error) {
	switch cfg.Transport {
	case "smtp":
		return notify.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword), nil
	case "ses":
		return notify.NewSES(cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretKey)
	default:
		return notify.LogSender{Log: log}, nil
	}
}
