package payout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"ChurchLedger/internal/serviceiface"
)

const defaultPort = "7143"

type PayoutService struct {
	config  map[string]interface{}
	handler *Handler
	server  *http.Server
}

func NewPayoutService(cfg map[string]interface{}, handler *Handler) serviceiface.Service {
	return &PayoutService{config: cfg, handler: handler}
}

func (s *PayoutService) Name() string {
	return "payout"
}

func (s *PayoutService) Addr() string {
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

func (s *PayoutService) Start() error {
	router := s.handler.Router()
	router.HandleFunc("/payout/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Payout Service is active"))
	})
	s.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Println("Payout Service started on", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Payout Service failed: %v", err)
		}
	}()
	return nil
}

func (s *PayoutService) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
