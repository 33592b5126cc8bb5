package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", t.TempDir()+"/missing.env")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("RAZORPAY_MODE", "fake")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "spacebook", cfg.Storage.MongoDB)
	assert.Len(t, cfg.Outbox.RetryBackoff, 3)
	assert.False(t, cfg.Redis.Enabled())
}

func TestValidate(t *testing.T) {
	base := Config{
		Env:      "dev",
		Storage:  StorageConfig{Driver: StorageMemory},
		Razorpay: RazorpayConfig{Mode: RazorpayFake},
		Auth:     AuthConfig{JWTSecret: "dev-secret-change-me"},
	}
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "memory defaults", mutate: func(c *Config) {}},
		{name: "mongo without uri", mutate: func(c *Config) { c.Storage.Driver = StorageMongo }, wantErr: true},
		{name: "mongo with uri", mutate: func(c *Config) {
			c.Storage.Driver = StorageMongo
			c.Storage.MongoURI = "mongodb://localhost:27017"
		}},
		{name: "live razorpay without secrets", mutate: func(c *Config) { c.Razorpay.Mode = RazorpayLive }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "sqlite" }, wantErr: true},
		{name: "default jwt secret in prod", mutate: func(c *Config) { c.Env = "prod" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
