package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"ChurchLedger/internal/serviceiface"
)

const (
	defaultGatewayPort = "8081"
	defaultPayoutURL   = "http://localhost:7143"
	defaultBotURL      = "http://localhost:7144"
)

type GatewayService struct {
	config map[string]interface{}
	server *http.Server
}

func NewGatewayService(cfg map[string]interface{}) serviceiface.Service {
	return &GatewayService{config: cfg}
}

func (s *GatewayService) Name() string {
	return "gateway"
}

func (s *GatewayService) value(key, def string) string {
	switch v := s.config[key].(type) {
	case int:
		return fmt.Sprint(v)
	case string:
		if v != "" {
			return v
		}
	}
	return def
}

// Routes lists the proxied prefixes in the order they are matched.
func (s *GatewayService) Routes() []Route {
	return []Route{
		{Prefix: "/functions/v1/", Target: s.value("payout_url", defaultPayoutURL)},
		{Prefix: "/bot/", Target: s.value("bot_url", defaultBotURL)},
	}
}

func (s *GatewayService) Start() error {
	router, err := NewGatewayRouter(s.Routes())
	if err != nil {
		return err
	}
	s.server = &http.Server{
		Addr:              ":" + s.value("port", defaultGatewayPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Println("API Gateway started on", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Gateway server failed: %v", err)
		}
	}()
	return nil
}

func (s *GatewayService) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
