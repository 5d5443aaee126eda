// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package storage

import "context"

type ctxKey string

const configKey ctxKey = "storage.config"

// WithConfig stores the storage configuration on the provided context.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, configKey, cfg)
}

// ConfigFromContext extracts the storage configuration from context.
func ConfigFromContext(ctx context.Context) (*Config, bool) {
	if ctx == nil {
		return nil, false
	}
	if cfg, ok := ctx.Value(configKey).(*Config); ok && cfg != nil {
		return cfg, true
	}
	return nil, false
}
