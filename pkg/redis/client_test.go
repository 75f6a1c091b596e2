package redis

import (
	"errors"
	"fmt"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestKeyBuildsNamespacedKeys(t *testing.T) {
	assert.Equal(t, "rl:cron:worker", Key("cron", "worker"))
	assert.Equal(t, "rl:locks", Key("locks"))
}

func TestIsNil(t *testing.T) {
	assert.True(t, IsNil(goredis.Nil))
	assert.True(t, IsNil(fmt.Errorf("read lock owner: %w", goredis.Nil)))
	assert.False(t, IsNil(errors.New("connection refused")))
	assert.False(t, IsNil(nil))
}
