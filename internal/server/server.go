// Package server exposes kalm's HTTP surface: liveness/health, the Telegram
// webhook receiver, the webhook-mode switch, and the manual send-support
// trigger used by the web frontend.
package server

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"kalm/internal/bot"
	"kalm/internal/config"
	"kalm/internal/observability"
	"kalm/internal/platform/telegram"
)

// WebhookManager registers and unregisters the Telegram webhook.
type WebhookManager interface {
	SetWebhook(ctx context.Context, url string) (json.RawMessage, error)
}

type Server struct {
	cfg      *config.Config
	router   chi.Router
	proc     *bot.Processor
	poller   *bot.Poller
	webhooks WebhookManager
	dedup    *telegram.Dedup
	log      *observability.Logger

	httpServer *http.Server
}

type supportRequest struct {
	AddictionType  string `json:"addiction_type"`
	TelegramChatID string `json:"telegram_chat_id"`
}

type supportResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func New(cfg *config.Config, proc *bot.Processor, poller *bot.Poller, webhooks WebhookManager) *Server {
	s := &Server{
		cfg:      cfg,
		proc:     proc,
		poller:   poller,
		webhooks: webhooks,
		dedup:    telegram.NewDedup(5 * time.Minute),
		log:      observability.Component("server"),
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
	}))
	r.Use(observability.RequestIDMiddleware)
	r.Use(observability.RecoverMiddleware)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Post("/api/telegram/webhook", s.handleWebhook)
	r.Post("/api/telegram/set-webhook", s.handleSetWebhook)
	r.Post("/api/send-support", s.handleSendSupport)

	s.router = r
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}
	return s
}

func (s *Server) ListenAndServe() error {
	s.log.Info(context.Background(), "listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.dedup.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Kalm API is running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleWebhook accepts a Telegram update. It always acknowledges — a
// non-200 would make Telegram re-deliver the update forever, and a broken
// payload is not worth that.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.cfg.TelegramWebhookSecret != "" {
		got := r.Header.Get("X-Telegram-Bot-Api-Secret-Token")
		if !hmac.Equal([]byte(got), []byte(s.cfg.TelegramWebhookSecret)) {
			s.log.Warn(ctx, "webhook secret mismatch")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.log.Warn(ctx, "webhook: bad payload", observability.AttrErr(err))
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	msg := update.Message
	if msg == nil || msg.Text == "" || s.dedup.IsDuplicate(update.UpdateID) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	firstName := "friend"
	if msg.From != nil && msg.From.FirstName != "" {
		firstName = msg.From.FirstName
	}

	s.log.Info(ctx, "webhook update", "chat_id", msg.Chat.ID, "update_id", update.UpdateID)
	go s.proc.Process(context.WithoutCancel(ctx), msg.Chat.ID, msg.Text, firstName)

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleSetWebhook switches ingestion to webhook mode: the poll loop is
// stopped, then the webhook is registered. There is no switch back.
func (s *Server) handleSetWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	webhookURL := r.URL.Query().Get("webhook_url")
	if webhookURL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "webhook_url query parameter is required"})
		return
	}

	if s.poller != nil {
		s.poller.Stop()
	}

	result, err := s.webhooks.SetWebhook(ctx, webhookURL)
	if err != nil {
		s.log.Error(ctx, "set webhook failed", observability.AttrErr(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}

	s.log.Info(ctx, "webhook mode enabled", "url", webhookURL)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(result)
}

func (s *Server) handleSendSupport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req supportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}
	if req.AddictionType == "" || req.TelegramChatID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "addiction_type and telegram_chat_id are required"})
		return
	}

	chatID, err := strconv.ParseInt(req.TelegramChatID, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": fmt.Sprintf("invalid telegram_chat_id: %v", err)})
		return
	}

	if err := s.proc.SendSupport(ctx, chatID, req.AddictionType, "Your Kalm support message"); err != nil {
		s.log.Error(ctx, "send support failed", "chat_id", chatID, observability.AttrErr(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, supportResponse{
		Success: true,
		Message: "Voice message sent to your Telegram!",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
