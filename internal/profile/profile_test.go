package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MINDMAP_SECRET",
		"MINDMAP_REDIS_HOST",
		"MINDMAP_REDIS_PORT",
		"MINDMAP_REDIS_DB",
		"MINDMAP_REDIS_PASSWORD",
		"MINDMAP_RATE_LIMIT_PER_MINUTE",
	} {
		t.Setenv(key, "")
	}
}

func TestProfileDefaults(t *testing.T) {
	clearEnvVars(t)

	profile := &Profile{}
	profile.FromEnv()

	assert.Equal(t, "localhost", profile.RedisHost)
	assert.Equal(t, 6379, profile.RedisPort)
	assert.Equal(t, 0, profile.RedisDB)
	assert.Equal(t, 60, profile.RateLimitPerMinute)
}

func TestProfileFromEnv(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("MINDMAP_REDIS_HOST", "redis.internal")
	t.Setenv("MINDMAP_REDIS_PORT", "6380")
	t.Setenv("MINDMAP_REDIS_DB", "2")
	t.Setenv("MINDMAP_RATE_LIMIT_PER_MINUTE", "120")

	profile := &Profile{}
	profile.FromEnv()

	assert.Equal(t, "redis.internal", profile.RedisHost)
	assert.Equal(t, 6380, profile.RedisPort)
	assert.Equal(t, 2, profile.RedisDB)
	assert.Equal(t, 120, profile.RateLimitPerMinute)
}

func TestProfileValidate(t *testing.T) {
	t.Run("UnknownModeFallsBackToDemo", func(t *testing.T) {
		profile := &Profile{Mode: "staging"}
		require.NoError(t, profile.Validate())
		assert.Equal(t, "demo", profile.Mode)
	})

	t.Run("ProdRequiresSecret", func(t *testing.T) {
		profile := &Profile{Mode: "prod", Data: t.TempDir()}
		assert.Error(t, profile.Validate())

		profile.Secret = "s3cret"
		assert.NoError(t, profile.Validate())
	})

	t.Run("DevGetsDefaultSecret", func(t *testing.T) {
		profile := &Profile{Mode: "demo"}
		require.NoError(t, profile.Validate())
		assert.NotEmpty(t, profile.Secret)
	})
}
