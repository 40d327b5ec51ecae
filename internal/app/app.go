package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/CyberSavant2024/SYNCplay/internal/controller"
	connInmemory "github.com/CyberSavant2024/SYNCplay/internal/repository/connection/inmemory"
	roomInmemory "github.com/CyberSavant2024/SYNCplay/internal/repository/room/inmemory"
	roomRedis "github.com/CyberSavant2024/SYNCplay/internal/repository/room/redis"
	"github.com/CyberSavant2024/SYNCplay/internal/service/room"
	"github.com/CyberSavant2024/SYNCplay/pkg/ctxlogger"
	"github.com/CyberSavant2024/SYNCplay/pkg/redisclient"
)

const (
	RoomStoreMemory = "memory"
	RoomStoreRedis  = "redis"
)

type AppConfig struct {
	Host          string `json:"host"`
	Port          int    `json:"port"`
	LogLevel      string `json:"log_level"`
	RoomStore     string `json:"room_store"`
	RedisPort     int    `json:"redis_port"`
	RedisHost     string `json:"redis_host"`
	RedisPassword string `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.RoomStore != RoomStoreMemory && cfg.RoomStore != RoomStoreRedis {
		return fmt.Errorf("unknown room store: %q", cfg.RoomStore)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Port)
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}
	logger := slog.New(&h)

	var roomRepo room.RoomRepo
	if cfg.RoomStore == RoomStoreRedis {
		rc, err := redisclient.NewRedisClient(&redisclient.Config{
			Port:     cfg.RedisPort,
			Host:     cfg.RedisHost,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer rc.Close()

		roomRepo = roomRedis.NewRepo(rc, 24*14*time.Hour, logger)
	} else {
		roomRepo = roomInmemory.NewRepo(logger)
	}

	connRepo := connInmemory.NewRepo(logger)
	roomService := room.NewService(roomRepo, logger)
	controller := controller.NewController(roomService, connRepo, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr, "room_store", cfg.RoomStore)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
