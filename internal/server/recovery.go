package server

import (
	"fmt"
	"net/http"

	"identgate/internal/observability/logging"

	"github.com/gorilla/handlers"
)

// recoveryLogger routes panics caught by handlers.RecoveryHandler to the structured logger
type recoveryLogger struct {
	logger *logging.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("Recovered from panic in handler", "panic", fmt.Sprint(v...))
}

// recoverPanics answers a panicking request with 500 instead of dropping the connection
func recoverPanics(logger *logging.Logger) func(http.Handler) http.Handler {
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger: logger.WithModule("server.recovery")}),
		handlers.PrintRecoveryStack(false),
	)
}
