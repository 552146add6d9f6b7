package utils

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"antmaps-api/internal/config"
)

func TestPostgresDSN(t *testing.T) {
	c := config.DB{Host: "db", Port: "5432", Name: "antmaps", User: "reader", Password: "p@ss", SSLMode: "require"}
	u, err := url.Parse(PostgresDSN(c))
	require.NoError(t, err)
	assert.Equal(t, "db:5432", u.Host)
	assert.Equal(t, "/antmaps", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss", pw)
	q := u.Query()
	assert.Equal(t, "require", q.Get("sslmode"))
	assert.Equal(t, "UTC", q.Get("timezone"))
	assert.Equal(t, "UTF8", q.Get("client_encoding"))
	assert.Equal(t, "read committed", q.Get("default_transaction_isolation"))
	assert.Equal(t, "on", q.Get("default_transaction_read_only"))

	w, err := url.Parse(WritableDSN(c))
	require.NoError(t, err)
	assert.Empty(t, w.Query().Get("default_transaction_read_only"))
	assert.Equal(t, "UTC", w.Query().Get("timezone"))
}

func TestOpenRedis(t *testing.T) {
	assert.Nil(t, OpenRedis(config.Redis{}))
	rc := OpenRedis(config.Redis{Host: "127.0.0.1", Port: "6379", DB: 2})
	require.NotNil(t, rc)
	defer rc.Close()
	assert.Equal(t, "127.0.0.1:6379", rc.Options().Addr)
	assert.Equal(t, 2, rc.Options().DB)
}
