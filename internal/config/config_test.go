package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"PORT", "DATABASE_URL", "STORE_DRIVER", "JWT_SECRET",
	"LOG_LEVEL", "ALLOW_ANONYMOUS_DEBT", "REQUEST_TIMEOUT",
}

// clearEnv blanks every key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func writeEnv(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	clearEnv(t)
	path := writeEnv(t, "DATABASE_URL=postgres://localhost/pdv\nJWT_SECRET=s3cret\n")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "postgres://localhost/pdv", cfg.DatabaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.AllowAnonymousDebt)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
}

func TestLoadFile_EnvironmentWins(t *testing.T) {
	clearEnv(t)
	path := writeEnv(t, "PORT=9000\nJWT_SECRET=from-file\nSTORE_DRIVER=memory\n")
	t.Setenv("PORT", "7000")
	t.Setenv("ALLOW_ANONYMOUS_DEBT", "true")
	t.Setenv("REQUEST_TIMEOUT", "5s")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.True(t, cfg.AllowAnonymousDebt)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestLoadFile_MissingFileUsesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "x")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoadFile_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing database url": "JWT_SECRET=x\n",
		"missing secret":       "STORE_DRIVER=memory\n",
		"bad port":             "STORE_DRIVER=memory\nJWT_SECRET=x\nPORT=abc\n",
		"bad driver":           "STORE_DRIVER=sqlite\nJWT_SECRET=x\n",
		"bad debt flag":        "STORE_DRIVER=memory\nJWT_SECRET=x\nALLOW_ANONYMOUS_DEBT=maybe\n",
		"bad timeout":          "STORE_DRIVER=memory\nJWT_SECRET=x\nREQUEST_TIMEOUT=-1s\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			_, err := LoadFile(writeEnv(t, body))
			assert.Error(t, err)
		})
	}
}
