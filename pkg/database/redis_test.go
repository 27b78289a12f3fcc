package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisKey(t *testing.T) {
	assert.Equal(t, "videotube-users:ratelimit:/login:1.2.3.4", (&Redis{namespace: "videotube-users"}).Key("ratelimit", "/login:1.2.3.4"))
	assert.Equal(t, "ratelimit:x", (&Redis{}).Key("ratelimit", "x"))
}
