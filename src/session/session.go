package session

import (
	"context"
	"fmt"

	"paper-trader/src/interfaces"
	"paper-trader/src/models"
)

// New builds the session store selected by cfg.Backend. The returned close
// function releases the backend and is never nil.
func New(ctx context.Context, cfg models.MSessionConfig) (interfaces.ISessionStore, func() error, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), func() error { return nil }, nil
	case "redis":
		store, err := NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported session backend: %s", cfg.Backend)
}
