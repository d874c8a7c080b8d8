package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"neurostate/internal/domain"
)

const crisisFlagPrefix = "crisis:flag:"

type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisCrisisFlagSource lee el flag que escribe el colaborador de detección de crisis.
// Una clave ausente es un error: un flag faltante nunca equivale a "sin crisis".
type RedisCrisisFlagSource struct {
	client  redisGetter
	prefix  string
	timeout time.Duration
}

func NewRedisCrisisFlagSource(client *redis.Client) *RedisCrisisFlagSource {
	if client == nil {
		return nil
	}
	return &RedisCrisisFlagSource{
		client:  client,
		prefix:  crisisFlagPrefix,
		timeout: 500 * time.Millisecond,
	}
}

func (r *RedisCrisisFlagSource) CrisisFlag(ctx context.Context, userID string) (bool, error) {
	if r == nil || r.client == nil {
		return false, domain.ErrMissingCrisisFlag
	}
	id := strings.TrimSpace(userID)
	if id == "" {
		return false, fmt.Errorf("%w: empty user id", domain.ErrMissingCrisisFlag)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	val, err := r.client.Get(ctx, r.prefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("%w: no flag published for user %s", domain.ErrMissingCrisisFlag, id)
	}
	if err != nil {
		return false, fmt.Errorf("read crisis flag: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("%w: unreadable crisis flag %q", domain.ErrMissingCrisisFlag, val)
	}
}
