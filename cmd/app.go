package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qrave1/RoomChat/internal/application/config"
	"github.com/qrave1/RoomChat/internal/application/constant"
	"github.com/qrave1/RoomChat/internal/application/metric"
	"github.com/qrave1/RoomChat/internal/broker"
	"github.com/qrave1/RoomChat/internal/infra/adapters/memory"
	natsadapter "github.com/qrave1/RoomChat/internal/infra/adapters/nats"
	"github.com/qrave1/RoomChat/internal/infra/adapters/postgres"
	"github.com/qrave1/RoomChat/internal/infra/adapters/postgres/repository"
	"github.com/qrave1/RoomChat/internal/infra/ports/http/handlers"
	"github.com/qrave1/RoomChat/internal/infra/ports/http/server"
	"github.com/qrave1/RoomChat/internal/usecase"
)

func runApp() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		slog.Error("parse config", slog.Any(constant.Error, err))
		os.Exit(1)
	}

	slog.SetDefault(
		slog.New(
			slog.NewJSONHandler(
				os.Stdout,
				&slog.HandlerOptions{Level: cfg.SlogLevel()},
			),
		),
	)

	channelRepo, messageRepo, closeStorage, err := newStorage(ctx, cfg)
	if err != nil {
		slog.Error("init storage", slog.Any(constant.Error, err), slog.String("storage", cfg.Storage))
		os.Exit(1)
	}
	defer closeStorage()

	hub := broker.NewHub()

	// Без NATS события рассылаются только подписчикам этого процесса
	var publisher broker.Publisher = hub

	if cfg.Nats.URL != "" {
		conn, err := natsadapter.Connect(cfg.Nats.URL)
		if err != nil {
			slog.Error("connect to nats", slog.Any(constant.Error, err))
			os.Exit(1)
		}

		relay := natsadapter.NewRelay(conn, cfg.Nats.SubjectPrefix, hub)
		if err = relay.Start(); err != nil {
			slog.Error("start nats relay", slog.Any(constant.Error, err))
			os.Exit(1)
		}
		defer func() {
			if err := relay.Close(); err != nil {
				slog.Error("close nats relay", slog.Any(constant.Error, err))
			}
		}()

		publisher = relay
	}

	gate := usecase.NewGate(channelRepo)
	chatBroker := broker.NewBroker(hub, publisher, gate)

	channelUsecase := usecase.NewChannelUsecase(channelRepo, gate, chatBroker, cfg.Chat.ChannelPageSize, cfg.Chat.MaxPageSize)
	messageUsecase := usecase.NewMessageUsecase(channelRepo, messageRepo, gate, chatBroker, cfg.Chat.MessagePageSize, cfg.Chat.MaxPageSize)

	wsConnRepo := memory.NewWSConnectionRepository()

	channelHandler := handlers.NewChannelHandler(channelUsecase)
	messageHandler := handlers.NewMessageHandler(messageUsecase)
	broadcastingHandler := handlers.NewBroadcastingHandler(chatBroker)
	wsHandler := handlers.NewWebSocketHandler(cfg, chatBroker, messageUsecase, wsConnRepo)

	echoSrv := server.New(cfg, channelHandler, messageHandler, broadcastingHandler, wsHandler)

	metricsSrv := metric.NewServer()

	echoSrvCh := make(chan error, 1)
	metricsSrvCh := make(chan error, 1)

	// Запускаем HTTP сервер
	go func() {
		echoSrvCh <- echoSrv.Start(":" + cfg.Port)
	}()

	// Запускаем сервер метрик
	go func() {
		metricsSrvCh <- metricsSrv.Start(":" + cfg.MetricPort)
	}()

	slog.Info(
		"RoomChat started",
		slog.String("port", cfg.Port),
		slog.String("metric_port", cfg.MetricPort),
		slog.String("storage", cfg.Storage),
		slog.Bool("nats", cfg.Nats.URL != ""),
	)

	// Ожидаем сигнал завершения или ошибку сервера
	select {
	case <-ctx.Done():
		slog.Info("Shutting down servers due to context cancel")
	case err := <-echoSrvCh:
		slog.Error(
			"HTTP server failed",
			slog.Any(constant.Error, err),
		)
		os.Exit(1)
	case err := <-metricsSrvCh:
		slog.Error(
			"Metrics server failed",
			slog.Any(constant.Error, err),
		)
		os.Exit(1)
	}

	// Graceful shutdown
	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer timeoutCancel()

	// Shutdown не трогает hijacked соединения, websocket закрываем сами
	slog.Info("Closing websocket connections", slog.Int("count", wsConnRepo.Count()))
	wsConnRepo.CloseAll()

	if err := echoSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown HTTP server", slog.Any(constant.Error, err))
	}

	if err := metricsSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown metric server", slog.Any(constant.Error, err))
	}
}

// newStorage выбирает реализацию хранилищ по STORAGE.
func newStorage(ctx context.Context, cfg *config.Config) (repository.ChannelRepository, repository.MessageRepository, func(), error) {
	switch cfg.Storage {
	case config.StorageMemory:
		slog.Warn("using in-memory storage, data is lost on restart")

		channelRepo := memory.NewChannelRepository()
		messageRepo := memory.NewMessageRepository(channelRepo, cfg.Chat.MaxContentLength)

		return channelRepo, messageRepo, func() {}, nil
	default:
		dbConn, err := postgres.NewPostgres(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}

		closeFn := func() {
			if err := dbConn.Close(); err != nil {
				slog.Error("close postgres", slog.Any(constant.Error, err))
			}
		}

		return repository.NewChannelRepo(dbConn), repository.NewMessageRepo(dbConn, cfg.Chat.MaxContentLength), closeFn, nil
	}
}
