package api

import "github.com/TedCarlson/teamoptix-ops-sub000/internal/serviceiface"

type GatewayService struct {
	config map[string]interface{}
}

func NewGatewayService(cfg map[string]interface{}) serviceiface.Service {
	return &GatewayService{config: cfg}
}

func (s *GatewayService) Name() string {
	return "gateway"
}

func (s *GatewayService) Start() error {
	port := ":8081"
	if s.config != nil {
		if p, ok := s.config["port"].(string); ok && p != "" {
			port = p
		}
	}
	target := "http://localhost:7143"
	if s.config != nil {
		if t, ok := s.config["ingestion_target"].(string); ok && t != "" {
			target = t
		}
	}
	go StartGateway(port, target)
	return nil
}

func (s *GatewayService) Stop() error {
	// Gateway shuts down with the process.
	return nil
}
