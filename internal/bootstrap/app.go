package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/locvowork/vacation_reports/internal/config"
	"github.com/locvowork/vacation_reports/internal/database"
	"github.com/locvowork/vacation_reports/internal/domain"
	"github.com/locvowork/vacation_reports/internal/handler"
	"github.com/locvowork/vacation_reports/internal/logger"
	"github.com/locvowork/vacation_reports/internal/repository"
	"github.com/locvowork/vacation_reports/internal/service"
)

// App wires configuration, the optional run history database and the
// report service. The HTTP surface is only used by the serve command.
type App struct {
	Echo    *echo.Echo
	DB      *sql.DB
	Config  *config.ProcessingConfig
	Service *service.VacationService
}

func NewApp() *App {
	return &App{
		Echo: echo.New(),
	}
}

// Initialize loads the environment and the processing config. configPath
// overrides CONFIG_FILE when set.
func (a *App) Initialize(ctx context.Context, configPath string, console bool) error {
	if err := config.LoadEnvConfig(); err != nil {
		return fmt.Errorf("failed to load env config: %w", err)
	}
	env := config.DefaultEnvConfig

	logger.InitLogging(logger.Options{
		FilePath: env.LOG_FILE_PATH,
		Level:    env.LOG_LEVEL,
		Console:  console,
	})
	logger.DebugLog(ctx, "Environment variables loaded successfully")

	if configPath == "" {
		configPath = env.CONFIG_FILE
	}
	cfg, err := config.LoadProcessingConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load processing config: %w", err)
	}
	a.Config = cfg

	var runs domain.RunRepository
	if env.DB_ENABLED {
		db, err := database.NewPostgresDB(ctx, database.Config{
			Host:            env.DB_HOST,
			Port:            env.DB_PORT,
			User:            env.DB_USER,
			Password:        env.DB_PASSWORD,
			DBName:          env.DB_NAME,
			SSLMode:         env.DB_SSL_MODE,
			MaxOpenConns:    env.DB_MAX_OPEN_CONNS,
			MaxIdleConns:    env.DB_MAX_IDLE_CONNS,
			ConnMaxLifetime: env.DB_CONN_MAX_LIFETIME,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		a.DB = db

		repo := repository.NewRunRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to prepare run history schema: %w", err)
		}
		runs = repo
		logger.InfoLog(ctx, "Run history stored in %s", env.DB_NAME)
	}

	a.Service = service.NewVacationService(cfg, runs)
	return nil
}

func (a *App) RegisterMiddlewares() {
	a.Echo.Use(middleware.Logger())
	a.Echo.Use(middleware.Recover())
	a.Echo.Use(middleware.CORS())
}

func (a *App) RegisterRoutes(h *handler.ReportHandler) {
	h.Register(a.Echo)
}

// Run serves HTTP until the server stops.
func (a *App) Run(port string) error {
	a.RegisterMiddlewares()
	a.RegisterRoutes(handler.NewReportHandler(a.Service))
	if port == "" {
		port = config.DefaultEnvConfig.APP_PORT
	}
	return a.Echo.Start(":" + port)
}

// Close releases the database connection, if any.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
