// @title           Presensi Attendance API
// @version         1.0
// @description     Check-in/check-out attendance tracking with selfies, corrections and admin reports.
// @BasePath        /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	_ "github.com/presensi/attendance-api/docs"
	"github.com/presensi/attendance-api/internal/api"
	"github.com/presensi/attendance-api/internal/core/ports"
	"github.com/presensi/attendance-api/internal/core/service"
	mongodb "github.com/presensi/attendance-api/internal/infrastructure/db/mongo"
	"github.com/presensi/attendance-api/internal/infrastructure/db/postgres"
	redisdb "github.com/presensi/attendance-api/internal/infrastructure/db/redis"
	"github.com/presensi/attendance-api/internal/infrastructure/http/handlers"
	"github.com/presensi/attendance-api/internal/infrastructure/queue"
	"github.com/presensi/attendance-api/internal/infrastructure/storage"
	"github.com/presensi/attendance-api/internal/pkg/config"
	"github.com/presensi/attendance-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// repositories bundles the storage adapters selected by STORAGE_DRIVER.
type repositories struct {
	users       ports.AuthRepository
	attendances ports.AttendanceRepository
	readiness   map[string]handlers.Pinger
	close       func(context.Context) error
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: reading .env: %v\n", err)
	}

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "presensi-api",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	repos, err := openRepositories(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := repos.close(closeCtx); err != nil {
			log.Error().Err(err).Msg("closing storage")
		}
	}()

	var locker ports.CheckInLocker
	if cfg.Redis.Addr != "" {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		locker = redisdb.NewCheckInLocker(rdb, cfg.Redis.LockTTL, logger.Component(log, "checkin_lock"))
		repos.readiness["redis"] = redisdb.NewPinger(rdb)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis check-in lock enabled")
	}

	photos, err := storage.NewFileStore(storage.Config{
		Dir:            cfg.Upload.Dir,
		ThumbnailWidth: cfg.Upload.ThumbnailWidth,
	}, log)
	if err != nil {
		return err
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	thumbnails := queue.NewDispatcher(cfg.Upload.ThumbnailWorkers, photos.GenerateThumbnail, log)
	thumbnails.Start(workerCtx)
	photos.UseQueue(thumbnails)
	defer func() {
		stopWorkers()
		thumbnails.Wait()
	}()

	loc := cfg.Location()
	authService := service.NewAuthService(repos.users, cfg.JWTSecret, cfg.JWTTTL, logger.Component(log, "auth_service"))
	if !cfg.AllowAdminRegistration {
		authService.RestrictAdminRegistration()
	}
	attendanceService := service.NewAttendanceService(repos.attendances, photos, locker, service.AttendanceOptions{
		Policy:        service.CheckInPolicy(cfg.Attendance.Policy),
		Location:      loc,
		PhotoRequired: cfg.Attendance.PhotoRequired,
		MaxPhotoBytes: cfg.Attendance.PhotoMaxBytes,
	}, logger.Component(log, "attendance_service"))

	e := api.NewRouter(api.Deps{
		AuthService:       authService,
		AttendanceService: attendanceService,
		Thumbnails:        photos,
		JWTSecret:         cfg.JWTSecret,
		Location:          loc,
		MaxPhotoBytes:     cfg.Attendance.PhotoMaxBytes,
		UploadDir:         cfg.Upload.Dir,
		Readiness:         repos.readiness,
		Logger:            log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("storage", cfg.StorageDriver).
			Str("policy", cfg.Attendance.Policy).
			Str("timezone", loc.String()).
			Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openRepositories(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*repositories, error) {
	switch cfg.StorageDriver {
	case config.StorageMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")
		return &repositories{
			users:       mongodb.NewAuthRepository(db),
			attendances: mongodb.NewAttendanceRepository(db),
			readiness:   map[string]handlers.Pinger{"mongodb": mongodb.NewPinger(client)},
			close:       client.Disconnect,
		}, nil

	default:
		db, err := postgres.Connect(ctx, postgres.Config{
			DSN:           cfg.Postgres.URL,
			MaxOpenConns:  cfg.Postgres.MaxOpenConns,
			SlowThreshold: cfg.Postgres.SlowThreshold,
		}, logger.Component(log, "gorm"))
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.AutoMigrate {
			sqlDB, err := db.DB()
			if err != nil {
				return nil, err
			}
			if err := postgres.Migrate(ctx, sqlDB, log); err != nil {
				_ = postgres.Close(db)
				return nil, err
			}
		}
		log.Info().Msg("connected to postgres")
		return &repositories{
			users:       postgres.NewUserRepository(db),
			attendances: postgres.NewAttendanceRepository(db),
			readiness:   map[string]handlers.Pinger{"postgres": postgres.NewPinger(db)},
			close:       func(context.Context) error { return postgres.Close(db) },
		}, nil
	}
}
