package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"ChurchLedger/internal/serviceiface"
)

const defaultPort = "7144"

type BotService struct {
	config  map[string]interface{}
	handler *Handler
	server  *http.Server
}

func NewBotService(cfg map[string]interface{}, handler *Handler) serviceiface.Service {
	return &BotService{config: cfg, handler: handler}
}

func (s *BotService) Name() string {
	return "bot"
}

func (s *BotService) Addr() string {
	port := defaultPort
	switch v := s.config["port"].(type) {
	case int:
		port = fmt.Sprint(v)
	case string:
		if v != "" {
			port = v
		}
	}
	return ":" + port
}

func (s *BotService) Start() error {
	router := s.handler.Router()
	router.HandleFunc("/bot/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Bot Service is active"))
	})
	s.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Println("Bot Service started on", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Bot Service failed: %v", err)
		}
	}()
	return nil
}

func (s *BotService) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
