package router

import (
	"fmt"
	"net/http"

	_ "github.com/courselibrary/backend/docs" // registers the swagger document
	libraryapp "github.com/courselibrary/backend/internal/application/library"
	"github.com/courselibrary/backend/internal/infrastructure/auth"
	"github.com/courselibrary/backend/internal/infrastructure/config"
	"github.com/courselibrary/backend/internal/infrastructure/logger"
	"github.com/courselibrary/backend/internal/infrastructure/telemetry"
	"github.com/courselibrary/backend/internal/interfaces/http/dto"
	"github.com/courselibrary/backend/internal/interfaces/http/handler"
	"github.com/courselibrary/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Dependencies are the collaborators the HTTP engine serves
type Dependencies struct {
	Logger      *zap.Logger
	DB          handler.Pinger
	JWT         *auth.JWTService // required when auth is enabled
	Metrics     *telemetry.Metrics
	RateLimiter *middleware.RateLimiter

	AuthorCollections *libraryapp.AuthorCollectionService
	Authors           *libraryapp.AuthorService
	Courses           *libraryapp.CourseService
}

// NewEngine builds the gin engine with the middleware chain, the health,
// metrics and documentation endpoints and the /api/v1 routes.
func NewEngine(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.Auth.Enabled && deps.JWT == nil {
		return nil, fmt.Errorf("auth is enabled but no JWT service was provided")
	}

	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	})...)
	engine.Use(
		logger.GinMiddleware(deps.Logger),
		logger.Recovery(deps.Logger, middleware.ExceptionResponder(cfg.App.IsDevelopment())),
		middleware.Secure(),
		middleware.CORS(cfg.HTTP),
		middleware.HTTPMetrics(deps.Metrics),
	)
	if cfg.HTTP.RateLimitEnabled && deps.RateLimiter != nil {
		engine.Use(middleware.RateLimit(deps.RateLimiter))
	}
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeNotFound, "Route not found", middleware.GetRequestID(c)))
	})

	engine.GET("/health", handler.NewHealthHandler(deps.DB).Health)
	if cfg.Metrics.Enabled && deps.Metrics != nil {
		engine.GET(cfg.Metrics.Path, gin.WrapH(deps.Metrics.Handler()))
	}

	var apiOpts []RouterOption
	var jwtAuth gin.HandlerFunc
	if cfg.Auth.Enabled {
		jwtAuth = middleware.JWTAuth(middleware.DefaultJWTConfig(deps.JWT, deps.Logger))
		apiOpts = append(apiOpts, WithAPIMiddleware(jwtAuth))
	}

	if cfg.Swagger.Enabled {
		engine.GET("/swagger/*any",
			middleware.SwaggerProtection(cfg.Swagger, jwtAuth),
			ginSwagger.WrapHandler(swaggerFiles.Handler),
		)
	}

	NewRouter(engine, apiOpts...).
		Register(authorCollectionRoutes(handler.NewAuthorCollectionHandler(deps.AuthorCollections))).
		Register(authorRoutes(handler.NewAuthorHandler(deps.Authors), handler.NewCourseHandler(deps.Courses))).
		Setup()

	return engine, nil
}

func authorCollectionRoutes(h *handler.AuthorCollectionHandler) *ResourceGroup {
	return NewResourceGroup("/authorcollections").
		POST("", h.Create).
		GET("/:ids", h.Get)
}

func authorRoutes(authors *handler.AuthorHandler, courses *handler.CourseHandler) *ResourceGroup {
	g := NewResourceGroup("/authors").
		GET("", authors.List).
		POST("", authors.Create).
		GET("/:authorId", authors.Get).
		DELETE("/:authorId", authors.Delete)

	g.Nest("/:authorId/courses").
		GET("", courses.List).
		POST("", courses.Create).
		GET("/:courseId", courses.Get).
		PUT("/:courseId", courses.Update).
		DELETE("/:courseId", courses.Delete)
	return g
}
