package constants

import "github.com/go-playground/validator/v10"

type contextKey string

const (
	TxKey        contextKey = "tx"
	PoolKey      contextKey = "pool"
	LoggerKey    contextKey = "logger"
	TenantIDKey  contextKey = "tenant_id"
	RequestIDKey contextKey = "request_id"
)

// Validate is the shared validator instance used by DTOs.
var Validate = validator.New(validator.WithRequiredStructEnabled())
