package config

import "context"

// Source yields the widget config a new session starts with.
type Source interface {
	Widget(ctx context.Context) (*Widget, error)
}

// StaticSource serves one config loaded at startup.
type StaticSource struct {
	Config *Widget
}

func (s StaticSource) Widget(context.Context) (*Widget, error) {
	return s.Config, nil
}

// StoreSource reads the config from Redis on every call so admin updates
// apply to new sessions without a restart.
type StoreSource struct {
	Store    *Store
	WidgetID string
}

func (s StoreSource) Widget(ctx context.Context) (*Widget, error) {
	return s.Store.Get(ctx, s.WidgetID)
}
