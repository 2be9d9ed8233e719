package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"Iris/internal/config"
	"Iris/internal/handlers"
	"Iris/internal/protocol"
	"Iris/internal/relay"
	"Iris/internal/storage"
	"Iris/internal/websocket"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.LogLevel)
	logger := slog.With("component", "server")

	store, err := storage.NewStorage(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.EnsureSchema(schemaCtx); err != nil {
		cancelSchema()
		logger.Error("failed to prepare database schema", "error", err)
		os.Exit(1)
	}
	cancelSchema()
	logger.Info("database connection established")

	engine := relay.NewEngine(store, cfg.StoreTimeout)
	monitor := websocket.NewMonitor(cfg.HeartbeatInterval)
	go monitor.Run()
	logger.Info("liveness monitor started", "interval", cfg.HeartbeatInterval)

	dispatcher := protocol.NewHandler(engine)
	chatHandler := handlers.NewChatHandler(dispatcher, engine, monitor)
	roomHandler := handlers.NewRoomHandler(store)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/chat", chatHandler.ServeWS)
	mux.HandleFunc("GET /health", healthHandler(engine, monitor))
	mux.Handle("POST /api/rooms", handlers.RequireAuth(cfg.JWTSecret, http.HandlerFunc(roomHandler.CreateRoom)))
	mux.HandleFunc("GET /api/rooms", roomHandler.ListRooms)
	mux.HandleFunc("GET /api/rooms/{roomID}/messages", roomHandler.RoomMessages)
	mux.Handle("POST /api/rooms/{roomID}/messages", handlers.RequireAuth(cfg.JWTSecret, http.HandlerFunc(roomHandler.SendMessage)))
	mux.Handle("GET /api/export/all", handlers.RequireAuth(cfg.JWTSecret, http.HandlerFunc(roomHandler.ExportAll)))

	srv := &http.Server{
		Addr:        cfg.Addr,
		Handler:     mux,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	monitor.Stop()
	logger.Info("server stopped")
}

func setupLogger(level string) {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}

func healthHandler(engine *relay.Engine, monitor *websocket.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, sessions := engine.Stats()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":      "ok",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"rooms":       rooms,
			"sessions":    sessions,
			"connections": monitor.Tracked(),
		})
	}
}
