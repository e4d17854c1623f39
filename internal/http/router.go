package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/accounthub/internal/auth"
	"github.com/geocoder89/accounthub/internal/cache"
	"github.com/geocoder89/accounthub/internal/config"
	"github.com/geocoder89/accounthub/internal/http/handlers"
	"github.com/geocoder89/accounthub/internal/http/middlewares"
	"github.com/geocoder89/accounthub/internal/observability"
	"github.com/geocoder89/accounthub/internal/risk"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// UsersStore is everything the handlers need from the user repository.
type UsersStore interface {
	handlers.UserReader
	handlers.UserWriter
	handlers.UsersStore
}

// Deps carries the explicitly constructed dependencies into the router;
// nothing here is a package-level singleton.
type Deps struct {
	Cfg    config.Config
	Users  UsersStore
	JWT    *auth.Manager
	Engine *risk.Engine
	Prom   *observability.Prom

	// Start is the process start time, used for /health uptime.
	Start time.Time

	// Ping reports store/limiter backend reachability for /readyz. May be nil.
	Ping func(ctx context.Context) error

	// Tracing enables the otelgin middleware.
	Tracing bool
}

func NewRouter(log *slog.Logger, deps Deps) *gin.Engine {
	if deps.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.SecurityHeaders())
	if len(deps.Cfg.AllowedOrigins) > 0 {
		r.Use(middlewares.CORSMiddleware(deps.Cfg.AllowedOrigins))
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	if deps.Tracing {
		r.Use(otelgin.Middleware("accounthub"))
	}
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))

	ping := func() error {
		if deps.Ping == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return deps.Ping(ctx)
	}

	health := handlers.NewHealthHandler(deps.Start, ping)
	r.GET("/", handlers.Root)
	r.GET("/health", health.Health)
	r.GET("/readyz", health.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})))

	authMW := middlewares.NewAuthMiddleware(deps.JWT, deps.Cfg.CookieName)

	// one read cache shared by every handler that can change the user set,
	// so creates invalidate the same entries reads are served from
	readCache := cache.New(5 * time.Second)

	authHandler := handlers.NewAuthHandler(deps.Users, deps.Users, deps.JWT, deps.Cfg, readCache)
	usersHandler := handlers.NewUsersHandler(deps.Users, readCache)

	api := r.Group("/api")
	api.Use(middlewares.RequireJSON())
	// identity is resolved (not required) before the risk guard so role
	// inference sees authenticated callers
	api.Use(authMW.Resolve())
	if deps.Engine != nil {
		api.Use(middlewares.RiskGuard(deps.Engine))
	}

	api.GET("", handlers.APIStatus)

	authGroup := api.Group("/auth")
	authGroup.POST("/sign-up", authHandler.SignUp)
	authGroup.POST("/sign-in", authHandler.SignIn)
	authGroup.POST("/sign-out", authHandler.SignOut)

	users := api.Group("/users")
	users.Use(authMW.RequireAuth())
	users.GET("", usersHandler.ListUsers)
	users.GET("/:id", usersHandler.GetUserByID)
	users.PUT("/:id", usersHandler.UpdateUser)
	users.DELETE("/:id", authMW.RequireRole("admin"), usersHandler.DeleteUser)

	r.NoRoute(handlers.NotFound)

	return r
}
