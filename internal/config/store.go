package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrWidgetNotFound is returned when no config is stored under a widget id.
var ErrWidgetNotFound = errors.New("config: widget not found")

// Store persists widget configurations in Redis so several embeds can be
// served by one process.
type Store struct {
	redis *redis.Client
}

// NewStore creates a widget config store.
func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func (s *Store) key(widgetID string) string {
	return fmt.Sprintf("widget:config:%s", widgetID)
}

// Get loads and normalizes the config for widgetID.
func (s *Store) Get(ctx context.Context, widgetID string) (*Widget, error) {
	data, err := s.redis.Get(ctx, s.key(widgetID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrWidgetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("config: get widget: %w", err)
	}
	return ParseWidget(data)
}

// Set validates and saves a widget config.
func (s *Store) Set(ctx context.Context, widgetID string, w *Widget) error {
	if err := w.Normalize(); err != nil {
		return err
	}
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("config: marshal widget: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(widgetID), data, 0).Err(); err != nil {
		return fmt.Errorf("config: set widget: %w", err)
	}
	return nil
}
