package handler

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"opsconsole/internal/logger"
	"opsconsole/internal/middleware"
	"opsconsole/internal/model"
	"opsconsole/internal/service"
	"opsconsole/internal/websocket"
	"opsconsole/pkg/response"
)

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Accounts   service.AccountService
	Customers  service.CustomerService
	Products   service.ProductService
	PriceLists service.PriceListService
	Approvals  service.ApprovalService
	Auth       service.AuthService
	Users      service.UserService
	Lookups    service.LookupService
	Audit      service.AuditService
}

type RouterConfig struct {
	Log           *zap.Logger
	Gate          *middleware.Gate
	Hub           *websocket.Hub // nil disables /ws
	CORSOrigins   []string
	ApproverRoles []string
	Health        map[string]Pinger
	Swagger       bool
}

// NewRouter assembles the engine: public auth routes, then everything under
// /api behind the session gate.
func NewRouter(cfg RouterConfig, svc Services) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(logger.GinMiddleware(log), logger.Recovery(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	if len(corsConfig.AllowOrigins) > 0 {
		router.Use(cors.New(corsConfig))
	}

	if cfg.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	router.GET("/health", Health(cfg.Health))

	if cfg.Hub != nil {
		router.GET("/ws", cfg.Gate.Authenticate(), func(c *gin.Context) {
			a, _ := middleware.ActorFrom(c)
			cfg.Hub.Serve(c, a.ID.String())
		})
	}

	api := router.Group("/api")
	NewAuthHandler(svc.Auth, cfg.Gate).RegisterRoutes(api)

	secured := api.Group("")
	secured.Use(cfg.Gate.Authenticate())
	NewEntityHandler[service.CreateAccountRequest, model.Account](model.KindAccount, svc.Accounts, svc.Approvals, cfg.ApproverRoles).RegisterRoutes(secured)
	NewEntityHandler[service.CreateCustomerRequest, model.Customer](model.KindCustomer, svc.Customers, svc.Approvals, cfg.ApproverRoles).RegisterRoutes(secured)
	NewEntityHandler[service.CreateProductRequest, model.Product](model.KindProduct, svc.Products, svc.Approvals, cfg.ApproverRoles).RegisterRoutes(secured)
	NewEntityHandler[service.CreatePriceListRequest, model.PriceList](model.KindPriceList, svc.PriceLists, svc.Approvals, cfg.ApproverRoles).RegisterRoutes(secured)
	NewUserHandler(svc.Users, cfg.ApproverRoles).RegisterRoutes(secured)
	NewLookupHandler(svc.Lookups).RegisterRoutes(secured)
	NewAuditHandler(svc.Audit, cfg.ApproverRoles).RegisterRoutes(secured)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Route not found"))
	})
	return router
}
