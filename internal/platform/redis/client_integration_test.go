//go:build integration

package redis_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harvestcert/internal/platform/config"
	"harvestcert/internal/platform/redis"
	"harvestcert/pkg/testutil/containers"
)

func TestNewConnectsAndPings(t *testing.T) {
	rc := containers.GetManager().GetRedis(t)
	cfg := config.Default().Redis
	cfg.URL = rc.URL

	client, err := redis.New(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()

	assert.NoError(t, client.Health(context.Background()))
}

func TestNewWithoutURLIsDisabled(t *testing.T) {
	client, err := redis.New(context.Background(), config.Redis{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := redis.New(context.Background(), config.Redis{URL: "://nope"})
	assert.ErrorContains(t, err, "parse redis URL")
}
