package routes

import (
	"time"

	"poll-service/configs"
	"poll-service/configs/database"
	"poll-service/internal/api/middleware"
	"poll-service/internal/auth"
	"poll-service/internal/poll"
	"poll-service/internal/services"
	"poll-service/internal/storage"
	"poll-service/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Router struct {
	engine      *gin.Engine
	pollHandler *poll.PollHandler
	userHandler *user.UserHandler
	authHandler *auth.AuthHandler
	rateLimitMW *middleware.RateLimitMiddleware
	authMW      *middleware.AuthMiddleware
}

func NewRouter(
	db *database.MongoDB,
	redisClient *redis.Client,
	media *storage.MinIOClient,
	cfg *configs.Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogApi())

	// Initialize repositories
	pollRepo := poll.NewPollRepository(db)
	userRepo := user.NewUserRepository(db)

	// A nil *MinIOClient must not become a non-nil uploader interface.
	var pollMedia poll.MediaUploader
	var avatarMedia user.AvatarUploader
	if media != nil {
		pollMedia = media
		avatarMedia = media
	}

	// Initialize services
	userService := user.NewUserService(userRepo, avatarMedia)
	pollService := poll.NewPollService(pollRepo, userService)
	authService := auth.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpire)

	redisService := services.NewRedisService(redisClient)

	return &Router{
		engine:      engine,
		pollHandler: poll.NewPollHandler(pollService, pollMedia),
		userHandler: user.NewUserHandler(userService),
		authHandler: auth.NewAuthHandler(authService),
		rateLimitMW: middleware.NewRateLimitMiddleware(redisService),
		authMW:      middleware.NewAuthMiddleware(cfg.JWTSecret),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK", "timestamp": time.Now().UTC().Format(time.RFC3339)})
	})
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.engine.Group("/api/v1")

	// Public routes (no authentication required)
	public := api.Group("/")
	{
		authRoutes := public.Group("/auth")
		authRoutes.Use(r.rateLimitMW.RateLimitIP(50, time.Minute)) // 50 requests per minute per IP
		{
			authRoutes.POST("/register", r.authHandler.Register)
			authRoutes.POST("/login", r.authHandler.Login)
		}

		polls := public.Group("/polls")
		polls.Use(r.rateLimitMW.RateLimitIP(100, time.Minute))
		{
			polls.GET("", r.pollHandler.ListPolls)
			polls.GET("/:id", r.pollHandler.GetPoll)
		}
	}

	// Authenticated routes
	authed := api.Group("/")
	authed.Use(r.authMW.RequireAuth())
	{
		authed.GET("/auth/me", r.authHandler.Me)

		// User routes
		users := authed.Group("/users")
		users.Use(r.rateLimitMW.RateLimit(100, time.Minute)) // 100 requests per minute
		{
			users.GET("/profile", r.userHandler.GetProfile)
			users.PUT("/profile", r.userHandler.UpdateProfile)
			users.GET("/stats", r.userHandler.GetStats)
			users.POST("/avatar", r.userHandler.UploadAvatar)
			users.GET("/polls", r.pollHandler.GetMyPolls)
		}

		// Poll mutation routes
		polls := authed.Group("/polls")
		polls.Use(r.rateLimitMW.RateLimit(200, time.Minute)) // 200 requests per minute
		{
			polls.POST("", r.pollHandler.CreatePoll)
			polls.POST("/:id/vote", r.pollHandler.Vote)
			polls.POST("/:id/like", r.pollHandler.ToggleLike)
			polls.POST("/:id/comment", r.pollHandler.AddComment)
			polls.DELETE("/:id/comments/:commentId", r.pollHandler.RemoveComment)
			polls.PUT("/:id", r.pollHandler.UpdatePoll)
			polls.DELETE("/:id", r.pollHandler.DeletePoll)
		}
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
