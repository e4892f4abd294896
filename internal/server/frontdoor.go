package server

import (
	"github.com/charmbracelet/log"
	"github.com/desertthunder/libstats/internal/auth"
	"github.com/desertthunder/libstats/internal/shared"
	"golang.org/x/oauth2"
)

// NewFrontDoor assembles the router for the authorization front door: /, /login, /callback & /refresh_token.
func NewFrontDoor(config *oauth2.Config, renewer auth.Renewer, logger *log.Logger) (*BasicRouter, *AuthHandler) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	handler := NewAuthHandler(config, renewer, logger)
	httpLogger := shared.WithLogger(logger, "component", "http")

	router := NewBasicRouter()
	router.Use(Recover(httpLogger), Logging(httpLogger))
	router.Handler(handler)
	router.Handler(IndexHandler{})
	httpLogger.Debug("front door routes", "patterns", router.Patterns())

	return router, handler
}
