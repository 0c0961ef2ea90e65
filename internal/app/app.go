// Package app wires configuration, storage, and HTTP serving together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizforge/quizforge-api/internal/config"
	"github.com/quizforge/quizforge-api/internal/db"
	"github.com/quizforge/quizforge-api/internal/entitlement"
	"github.com/quizforge/quizforge-api/internal/events"
	"github.com/quizforge/quizforge-api/internal/generator"
	"github.com/quizforge/quizforge-api/internal/http/api/front"
	"github.com/quizforge/quizforge-api/internal/ratelimit"
	internalsettings "github.com/quizforge/quizforge-api/internal/settings"
	log "github.com/sirupsen/logrus"
)

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the API server with database-backed components. It blocks
// until the context is cancelled, then shuts down gracefully.
func RunServer(ctx context.Context, cfg config.AppConfig, defaultPort int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	settingsStore := internalsettings.NewStore(conn)
	freeQuota := settingsStore.Int(internalsettings.FreeGenerationsKey, internalsettings.DefaultFreeGenerations)

	meter := entitlement.NewEngine(conn, freeQuota, nil)

	jwtConfig, _ := config.LoadJWTConfig(configPath)

	geminiConfig, errGemini := config.LoadGeminiConfig(configPath)
	if errGemini != nil {
		return errGemini
	}
	client, errClient := generator.NewGeminiClient(geminiConfig)
	if errClient != nil {
		return errClient
	}

	limiter := ratelimit.NewManager(func() ratelimit.SettingsConfig {
		return ratelimit.LoadSettingsConfig(settingsStore)
	}, nil, nil)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	front.RegisterFrontRoutes(engine, conn, front.Deps{
		Generator: client,
		Meter:     meter,
		Limiter:   limiter,
		Recorder:  events.NewRecorder(conn),
		JWT:       jwtConfig,
	})

	if defaultPort <= 0 {
		defaultPort = 8318
	}
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", defaultPort),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}
