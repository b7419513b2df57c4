package backend

import (
	"fmt"
	"time"

	"murmur/model"
)

// Type identifies the backend implementation.
type Type string

const (
	TypeDirect Type = "direct"
	TypeWorker Type = "worker"
	TypeEdge   Type = "edge"
)

// Config holds backend-specific configuration. It is read once at
// construction; the active backend does not change mid-session.
type Config struct {
	Type     Type
	Endpoint string // provider completions URL (direct)
	APIKey   string // provider API key (direct)
	ProxyURL string // relay URL (worker/edge)
	Timeout  time.Duration
}

// New creates a backend from configuration. This is the centralized factory;
// callers select the variant through Config.Type and never construct
// variants directly.
func New(cfg Config) (model.Backend, error) {
	switch cfg.Type {
	case TypeDirect:
		return NewDirect(cfg.Endpoint, cfg.APIKey, cfg.Timeout)
	case TypeWorker:
		return NewWorkerProxy(cfg.ProxyURL, cfg.Timeout), nil
	case TypeEdge:
		return NewEdgeProxy(cfg.ProxyURL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Type)
	}
}

// MapBackendID converts a user-facing backend id from config to a factory
// Type. Unknown ids pass through as-is and the factory reports the error.
func MapBackendID(id string) Type {
	switch id {
	case "direct", "":
		return TypeDirect
	case "worker":
		return TypeWorker
	case "edge":
		return TypeEdge
	default:
		return Type(id)
	}
}
