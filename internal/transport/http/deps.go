package http

import (
	"github.com/egovauthenticator/api/internal/application/user"
	"github.com/egovauthenticator/api/internal/application/verification"
	jwtinfra "github.com/egovauthenticator/api/internal/infrastructure/jwt"
	"github.com/egovauthenticator/api/internal/transport/http/handler"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Deps holds the services and infrastructure the router needs.
type Deps struct {
	UserService         user.Service
	VerificationService verification.Service
	JWTProvider         *jwtinfra.Provider
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer            prometheus.Gatherer
	ReadinessChecks     map[string]handler.ReadinessCheck
	Logger              *zap.Logger
}
