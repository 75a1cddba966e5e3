package handlers

import (
	"sitetrust/internal/domain/services"
	"sitetrust/pkg/logger"
)

// Handlers holds all API handlers
type Handlers struct {
	Health   *HealthHandler
	Websites *WebsiteHandler
}

// Dependencies holds dependencies for handlers
type Dependencies struct {
	Service      *services.VerificationService
	Version      string
	HealthChecks map[string]Pinger
	Logger       *logger.Logger
}

// NewHandlers creates all handlers
func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(deps.Version, deps.HealthChecks, deps.Logger),
		Websites: NewWebsiteHandler(deps.Service, deps.Logger),
	}
}
