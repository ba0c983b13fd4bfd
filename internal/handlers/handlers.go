package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/takuyakubo/knowledge-system/internal/config"
	"github.com/takuyakubo/knowledge-system/internal/middleware"
	"github.com/takuyakubo/knowledge-system/internal/repository"
	"github.com/takuyakubo/knowledge-system/internal/service"
	"github.com/takuyakubo/knowledge-system/internal/storage"
)

type HandlerSet struct {
	log            zerolog.Logger
	cfg            *config.AppConfig
	authService    *service.AuthService
	articleService *service.ArticleService
	paperService   *service.PaperService
	fileService    *service.FileService
	db             *pgxpool.Pool
	cache          *redis.Client
	users          *repository.UserRepository
	sessions       *repository.SessionRepository
	articles       *repository.ArticleRepository
	papers         *repository.PaperRepository
	tags           *repository.TagRepository
	categories     *repository.CategoryRepository
	files          *repository.FileRepository
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, store *storage.ObjectStore, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	tokenRepo := repository.NewAuthTokenRepository(cache)
	articleRepo := repository.NewArticleRepository(db)
	paperRepo := repository.NewPaperRepository(db)
	tagRepo := repository.NewTagRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	fileRepo := repository.NewFileRepository(db)

	auth := service.NewAuthService(userRepo, sessionRepo, tokenRepo, cfg, log)
	articles := service.NewArticleService(articleRepo, tagRepo, log)
	papers := service.NewPaperService(paperRepo, tagRepo, log)
	files := service.NewFileService(fileRepo, store, cfg, log)

	return HandlerSet{
		log:            log,
		cfg:            cfg,
		authService:    auth,
		articleService: articles,
		paperService:   papers,
		fileService:    files,
		db:             db,
		cache:          cache,
		users:          userRepo,
		sessions:       sessionRepo,
		articles:       articleRepo,
		papers:         paperRepo,
		tags:           tagRepo,
		categories:     categoryRepo,
		files:          fileRepo,
	}
}

func (h HandlerSet) Routes(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	authn := middleware.Auth(h.cfg, h.users, h.sessions)
	loginLimit := middleware.RateLimit(h.cfg.Security.LoginRatePerMin, h.cfg.Security.LoginRateBurst)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", loginLimit, h.RegisterUser)
		auth.POST("/login", loginLimit, h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/forgot-password", loginLimit, h.ForgotPassword)
		auth.POST("/reset-password", h.ResetPassword)
		auth.POST("/verify-email/:token", h.VerifyEmail)

		protected := v1.Group("/auth")
		protected.Use(authn)
		protected.GET("/me", h.Me)
		protected.PUT("/me", h.UpdateMe)
		protected.POST("/logout", h.Logout)
		protected.POST("/change-password", h.ChangePassword)
		protected.GET("/sessions", h.ListSessions)
		protected.DELETE("/sessions/:id", h.RevokeSession)

		articles := v1.Group("/articles", authn)
		articles.GET("", h.ListArticles)
		articles.POST("", h.CreateArticle)
		articles.GET("/popular", h.PopularArticles)
		articles.GET("/recent", h.RecentArticles)
		articles.GET("/slug/:slug", h.ArticleBySlug)
		articles.GET("/:id", h.GetArticle)
		articles.PUT("/:id", h.UpdateArticle)
		articles.DELETE("/:id", h.DeleteArticle)
		articles.POST("/:id/publish", h.PublishArticle)
		articles.POST("/:id/unpublish", h.UnpublishArticle)
		articles.POST("/:id/like", h.LikeArticle)

		papers := v1.Group("/papers", authn)
		papers.GET("", h.ListPapers)
		papers.POST("", h.CreatePaper)
		papers.GET("/doi/*doi", h.PaperByDOI)
		papers.GET("/arxiv/:arxivId", h.PaperByArxivID)
		papers.GET("/:id", h.GetPaper)
		papers.PUT("/:id", h.UpdatePaper)
		papers.DELETE("/:id", h.DeletePaper)
		papers.POST("/:id/rating", h.RatePaper)
		papers.POST("/:id/status", h.SetPaperStatus)
		papers.POST("/:id/favorite", h.FavoritePaper)
		papers.POST("/:id/cite", h.CitePaper)

		tags := v1.Group("/tags", authn)
		tags.GET("", h.ListTags)
		tags.POST("", h.CreateTag)
		tags.POST("/bulk", h.BulkTags)
		tags.GET("/popular", h.PopularTags)
		tags.GET("/unused", h.UnusedTags)
		tags.GET("/slug/:slug", h.TagBySlug)
		tags.GET("/:id", h.GetTag)
		tags.PUT("/:id", h.UpdateTag)
		tags.POST("/:id/activate", h.ActivateTag)
		tags.POST("/:id/deactivate", h.DeactivateTag)
		tags.DELETE("/:id", middleware.RequireSuperuser(), h.DeleteTag)

		categories := v1.Group("/categories", authn)
		categories.GET("", h.ListCategories)
		categories.POST("", h.CreateCategory)
		categories.GET("/tree", h.CategoryTree)
		categories.GET("/roots", h.RootCategories)
		categories.GET("/slug/:slug", h.CategoryBySlug)
		categories.GET("/:id", h.GetCategory)
		categories.GET("/:id/children", h.CategoryChildren)
		categories.PUT("/:id", h.UpdateCategory)
		categories.POST("/:id/move", h.MoveCategory)
		categories.DELETE("/:id", middleware.RequireSuperuser(), h.DeleteCategory)

		files := v1.Group("/files", authn)
		files.POST("/upload", h.UploadFile)
		files.GET("", h.ListFiles)
		files.GET("/:id", h.GetFile)
		files.GET("/:id/download", h.DownloadFile)
		files.POST("/:id/associate/article/:articleId", h.AssociateFileArticle)
		files.POST("/:id/associate/paper/:paperId", h.AssociateFilePaper)
		files.DELETE("/:id/associations", h.ClearFileAssociations)
		files.DELETE("/:id", h.DeleteFile)
	}
}

// pathID parses the named route parameter as an integer id, replying 400
// itself when the value is not one.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
