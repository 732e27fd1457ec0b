package catalog

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisCache_Keys(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()

	c := NewRedisCache(rdb, "", 0)
	assert.Equal(t, DefaultCacheTTL, c.ttl)
	assert.Equal(t, "catalog:gen", c.genKey())
	assert.Equal(t, "catalog:3:combo:MENU1:7", c.key(3, snapshotKey("MENU1", 7)))

	c = NewRedisCache(rdb, "kiosk", 0)
	assert.Equal(t, "kiosk:0:combo:MENU1:0", c.key(0, snapshotKey("MENU1", 0)))
}
