package usecase

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
)

// Error classes of the application shell
var (
	// ErrTagConfiguration marks directory creation or path resolution failures. Fatal, shown verbatim.
	ErrTagConfiguration = goerr.NewTag("configuration")

	// ErrTagBootstrap marks schema creation or seeding failures. Fatal, shown with a fixed message.
	ErrTagBootstrap = goerr.NewTag("bootstrap")

	// ErrTagServiceUnavailable marks read failures of the domain service. Recovered by the caller.
	ErrTagServiceUnavailable = goerr.NewTag("service_unavailable")

	// ErrTagInvalidInput marks rejected user input
	ErrTagInvalidInput = goerr.NewTag("invalid_input")
)

// Sentinel errors for use case layer
var (
	ErrNotReady     = errors.New("application is not initialized")
	ErrRiskNotFound = errors.New("risk entry not found")
)

// Context keys for error values
const (
	RiskIDKey = "risk_id"
	PathKey   = "path"
	StateKey  = "state"
)

// BootstrapFailureMessage is shown to users instead of the raw bootstrap error
const BootstrapFailureMessage = "Erro ao inicializar aplicação: não foi possível preparar o banco de dados. Contate o suporte."

// UserMessage returns the text shown to the operator or user for a startup error
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case goerr.HasTag(err, ErrTagBootstrap):
		return BootstrapFailureMessage
	default:
		return "Erro ao inicializar aplicação: " + err.Error()
	}
}
