package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/campuswell/internal/app/controllers"
	appMigrations "github.com/yigit/campuswell/internal/app/migrations"
	appRepos "github.com/yigit/campuswell/internal/app/repositories"
	appRoutes "github.com/yigit/campuswell/internal/app/routes"
	appServices "github.com/yigit/campuswell/internal/app/services"
	"github.com/yigit/campuswell/internal/cache"
	"github.com/yigit/campuswell/internal/community"
	"github.com/yigit/campuswell/internal/config"
	"github.com/yigit/campuswell/internal/db"
	"github.com/yigit/campuswell/internal/jobs"
	appMiddleware "github.com/yigit/campuswell/internal/middleware"
	pkgAuth "github.com/yigit/campuswell/internal/pkg/auth"
	"github.com/yigit/campuswell/internal/pkg/email"
	"github.com/yigit/campuswell/internal/pkg/filestorage"
	"github.com/yigit/campuswell/internal/pkg/helpers"
	"github.com/yigit/campuswell/internal/pkg/logger"
	"github.com/yigit/campuswell/internal/pkg/websocket"
	"github.com/yigit/campuswell/internal/security/csrf"
	"github.com/yigit/campuswell/internal/security/ratelimit"
	"github.com/yigit/campuswell/internal/seed"
)

// DefaultConfigPath is where the YAML configuration is looked up.
const DefaultConfigPath = "configs/config.yaml"

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos       *appRepos.Repositories
	JWTService  *pkgAuth.JWTService
	Mailer      email.EmailService
	FileStorage *filestorage.LocalStorage
	Redis       *redis.Client

	Community *community.Store
	Hub       *websocket.Hub
	Limiter   *ratelimit.Limiter
	IPLimiter *ratelimit.IPLimiter
	CSRF      *csrf.Manager

	AuthService      *appServices.AuthService
	OTPService       *appServices.OTPService
	UserService      *appServices.UserService
	WellnessService  *appServices.WellnessService
	CommunityService *appServices.CommunityService

	AuthMiddleware     *appMiddleware.AuthMiddleware
	SecurityMiddleware *appMiddleware.SecurityMiddleware
	Handlers           appRoutes.Handlers

	Maintenance *jobs.Maintenance
	Logger      zerolog.Logger
}

// Close releases the connections owned by the dependencies. The database pool is
// owned by the caller.
func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	level := logger.ParseLevel(cfg.Logging.Level)
	format := strings.ToLower(cfg.Logging.Format)
	lgr := logger.Configure(logger.Config{
		Level:   level,
		Pretty:  format == "text" || format == "pretty",
		Service: "campuswell-api",
	})

	lgr.Info().Str("logLevel", string(level)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(ctx, cfg, logger.Component("db"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := RunMigrations(ctx, database, lgr); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// RunMigrations applies the embedded schema migrations that are not applied yet.
func RunMigrations(ctx context.Context, database *db.PostgresDB, lgr zerolog.Logger) error {
	migrator := appMigrations.NewMigrator(database.Pool, logger.Component("migrations"))
	applied, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Int("applied", applied).Msg("Database migrations up to date")
	return nil
}

func otpConfig(cfg *config.Config) appServices.OTPConfig {
	def := appServices.DefaultOTPConfig()
	out := appServices.OTPConfig{
		Expiry:         helpers.ParseDuration(cfg.OTP.Expiry, def.Expiry),
		MaxAttempts:    cfg.OTP.MaxAttempts,
		ResendCooldown: helpers.ParseDuration(cfg.OTP.ResendCooldown, def.ResendCooldown),
		RequestLimit:   cfg.OTP.RequestLimit,
		RequestWindow:  helpers.ParseDuration(cfg.OTP.RequestWindow, def.RequestWindow),
		Retention:      helpers.ParseDuration(cfg.OTP.Retention, def.Retention),
	}
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = def.MaxAttempts
	}
	if out.RequestLimit <= 0 {
		out.RequestLimit = def.RequestLimit
	}
	return out
}

// NewMailer builds the mail service from the SMTP settings.
func NewMailer(cfg *config.Config) *email.EmailServiceImpl {
	return email.NewEmailService(email.SMTPConfig{
		Enabled:    cfg.SMTP.Enabled,
		Host:       cfg.SMTP.Host,
		Port:       cfg.SMTP.Port,
		Username:   cfg.SMTP.Username,
		Password:   cfg.SMTP.Password,
		FromName:   cfg.SMTP.FromName,
		FromEmail:  cfg.SMTP.From,
		Encryption: cfg.SMTP.Encryption,
		AppURL:     cfg.SMTP.AppURL,
	}, logger.Component("email"))
}

func (d *Dependencies) setupLimiter(ctx context.Context, cfg *config.Config) error {
	var store ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.Security.RateLimit.Store == "redis" {
		rdb, err := cache.NewRedisClient(ctx, cfg, logger.Component("redis"))
		if err != nil {
			return err
		}
		d.Redis = rdb
		store = ratelimit.NewRedisStore(rdb, cfg.Redis.Prefix+"ratelimit:")
	}

	opts := []ratelimit.Option{ratelimit.WithLogger(logger.Component("ratelimit"))}
	for action, rule := range cfg.Security.RateLimit.Actions {
		opts = append(opts, ratelimit.WithConfig(ratelimit.Action(action), ratelimit.Config{
			MaxAttempts:   rule.MaxAttempts,
			Window:        config.Duration(rule.Window),
			BlockDuration: config.Duration(rule.BlockDuration),
		}))
	}
	d.Limiter = ratelimit.New(store, opts...)
	d.IPLimiter = ratelimit.NewIPLimiter(cfg.Security.IPLimit.RPS, cfg.Security.IPLimit.Burst)
	return nil
}

// BuildDependencies initializes application repositories, services, and controllers,
// loads the community board and seeds the default data.
func BuildDependencies(ctx context.Context, cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(database.Pool)

	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Storage.UploadDir, cfg.Storage.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 15*time.Minute),
		RefreshTokenExp: helpers.ParseDuration(cfg.JWT.RefreshTokenExpiration, 7*24*time.Hour),
		ResetTokenExp:   helpers.ParseDuration(cfg.JWT.ResetTokenExpiration, 15*time.Minute),
		TokenIssuer:     cfg.JWT.Issuer,
	})
	deps.Mailer = NewMailer(cfg)

	if err := deps.setupLimiter(ctx, cfg); err != nil {
		return nil, err
	}
	cleanupEvery := helpers.ParseDuration(cfg.Jobs.CleanupInterval, 10*time.Minute)
	deps.CSRF = csrf.NewManager(cleanupEvery,
		csrf.WithLifetime(helpers.ParseDuration(cfg.Security.CSRF.Lifetime, csrf.DefaultLifetime)),
		csrf.WithLogger(logger.Component("csrf")),
	)

	deps.Hub = websocket.NewHub(logger.Component("websocket"))
	deps.Community = community.NewStore(deps.Repos.CommunityRepository, logger.Component("community"),
		community.WithPublisher(deps.Hub))
	if err := deps.Community.Load(ctx); err != nil {
		deps.Close()
		return nil, err
	}

	admin := seed.AdminAccount{Email: cfg.Admin.Email, Username: cfg.Admin.Username, Password: cfg.Admin.Password}
	if err := seed.CreateDefaultData(ctx, admin, deps.Repos.UserRepository, deps.Community, lgr); err != nil {
		// Log the error but don't fail the startup
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	// Initialize services
	deps.OTPService = appServices.NewOTPService(deps.Repos.OTPRepository, deps.Mailer, otpConfig(cfg), logger.Component("otp"))
	deps.AuthService = appServices.NewAuthService(
		deps.Repos.UserRepository,
		deps.Repos.TokenRepository,
		deps.OTPService,
		deps.JWTService,
		deps.Community,
		deps.Mailer,
		logger.Component("auth"),
	)
	deps.UserService = appServices.NewUserService(
		deps.Repos.UserRepository,
		deps.Community,
		deps.Repos.WellnessRepository,
		deps.FileStorage,
		cfg.Storage.MaxAvatarSize,
		logger.Component("users"),
	)
	deps.WellnessService = appServices.NewWellnessService(
		deps.Repos.WellnessRepository,
		deps.Repos.UserRepository,
		deps.Community,
		deps.Mailer,
		logger.Component("wellness"),
	)
	deps.CommunityService = appServices.NewCommunityService(deps.Community, deps.Repos.CommunityRepository, logger.Component("community"))

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)
	deps.SecurityMiddleware = appMiddleware.NewSecurityMiddleware(
		deps.Limiter,
		deps.IPLimiter,
		deps.CSRF,
		cfg.Security.CSRF.Enabled,
		logger.Component("security"),
	)

	deps.Handlers = appRoutes.Handlers{
		Auth:               appControllers.NewAuthController(deps.AuthService, deps.SecurityMiddleware, lgr),
		User:               appControllers.NewUserController(deps.UserService, lgr),
		Wellness:           appControllers.NewWellnessController(deps.WellnessService, lgr),
		Community:          appControllers.NewCommunityController(deps.CommunityService, lgr),
		Admin:              appControllers.NewAdminController(deps.CommunityService, lgr),
		Security:           appControllers.NewSecurityController(deps.CSRF, deps.SecurityMiddleware, lgr),
		Feed:               websocket.NewHandler(deps.Hub, cfg.Security.CORS.AllowedOrigins, logger.Component("websocket")),
		AuthMiddleware:     deps.AuthMiddleware,
		SecurityMiddleware: deps.SecurityMiddleware,
	}

	deps.Maintenance = &jobs.Maintenance{
		RateLimits: deps.Limiter,
		CSRF:       deps.CSRF,
		IPs:        deps.IPLimiter,
		OTPs:       deps.OTPService,
		Tokens:     deps.Repos.TokenRepository,
		Views:      deps.Community,
		Goals:      deps.WellnessService,
		Logger:     logger.Component("jobs"),
	}

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	sec := deps.SecurityMiddleware
	router.Use(
		appMiddleware.Recovery(),
		appMiddleware.RequestID(),
		appMiddleware.RequestLogger(logger.Component("http")),
		appMiddleware.SecurityHeaders(),
		appMiddleware.CORS(cfg.Security.CORS.AllowedOrigins),
		sec.Throttle(),
		sec.BotDetection(),
	)

	appRoutes.SetupRouter(router, deps.Handlers)
	return router, nil
}

// StoreMaintenance sweeps only the database backed stores. Used by the cleanup command,
// which runs without the in-memory limiter and CSRF state of a live server.
func StoreMaintenance(cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) *jobs.Maintenance {
	repos := appRepos.NewRepositories(database.Pool)
	otps := appServices.NewOTPService(repos.OTPRepository, NewMailer(cfg), otpConfig(cfg), logger.Component("otp"))
	return &jobs.Maintenance{
		OTPs:   otps,
		Tokens: repos.TokenRepository,
		Logger: lgr,
	}
}
