package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/agrocloud-api/pkg/config"
)

func TestPoolConfig(t *testing.T) {
	cfg := config.DBConfig{Host: "db", Port: 5433, User: "agro", Password: "p@ss", DBName: "agrocloud", SSLMode: "disable", MaxConns: 8, MinConns: 3}

	pc, err := poolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "db", pc.ConnConfig.Host)
	assert.Equal(t, uint16(5433), pc.ConnConfig.Port)
	assert.Equal(t, "p@ss", pc.ConnConfig.Password)
	assert.Equal(t, int32(8), pc.MaxConns)
	assert.Equal(t, int32(3), pc.MinConns)
	assert.Equal(t, time.Hour, pc.MaxConnLifetime)
	assert.NotNil(t, pc.AfterConnect)
}

func TestPoolConfig_DatabaseURLTienePrioridad(t *testing.T) {
	cfg := config.DBConfig{DatabaseURL: "postgres://u:p@supabase.local:6543/postgres?sslmode=require", Host: "ignorado", MinConns: 999}

	pc, err := poolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "supabase.local", pc.ConnConfig.Host)
	assert.Equal(t, "postgres", pc.ConnConfig.Database)
	assert.LessOrEqual(t, pc.MinConns, pc.MaxConns, "min_conns por encima del máximo se ignora")
}

func TestPoolConfig_DSNInvalido(t *testing.T) {
	_, err := poolConfig(config.DBConfig{DatabaseURL: "postgres://u:p@host:notaport/db"})
	assert.Error(t, err)
}
