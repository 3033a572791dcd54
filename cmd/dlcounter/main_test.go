package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/d0ngw/dlcounter/counter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, name := range []string{"KV_REST_API_URL", "KV_REST_API_TOKEN", "UPSTASH_REDIS_REST_URL", "UPSTASH_REDIS_REST_TOKEN", "KV_URL", "REDIS_URL",
		"DLCOUNTER_ADDR", "DLCOUNTER_LOG_LEVEL", "DLCOUNTER_STORE_NAME", "DLCOUNTER_KEY_PREFIX"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestSetup(t *testing.T) {
	clearEnv(t)
	s := miniredis.RunT(t)
	dir := t.TempDir()
	confData := fmt.Sprintf(`
log:
  env: development
  level: info
http:
  addr: 127.0.0.1:0
  max_conns: 16
endpoint: /api/track-download
store:
  name: Redis
  redis:
    url: redis://%s
counter:
  key_prefix: "site:downloads:"
`, s.Addr())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dlcounter.yaml"), []byte(confData), 0644))
	*confDir = dir
	*envFile = filepath.Join(dir, ".env")

	config := &Config{}
	a, err := setup(config)
	require.NoError(t, err)
	assert.Equal(t, counter.DriverRedis, config.Store.Driver)
	assert.Equal(t, "site:downloads:", config.Counter.KeyPrefix)
	assert.Equal(t, "total", config.Counter.TotalKey)

	require.True(t, a.services.Init())
	require.True(t, a.services.Start())
	defer a.services.Stop()
	assert.Equal(t, "Redis", a.counter.StoreName())

	addr, err := a.http.Addr()
	require.NoError(t, err)
	url := fmt.Sprintf("http://%s/api/track-download", addr)

	resp, err := http.Post(url, "application/json", nil)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"success":true,"total":1}`, string(body))

	resp, err = http.Get(url)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.JSONEq(t, `{"total":1,"today":1}`, string(body))

	v, err := s.Get("site:downloads:total")
	assert.NoError(t, err)
	assert.Equal(t, "1", v)
}

func TestSetupWithoutStore(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DLCOUNTER_ADDR=127.0.0.1:0\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dlcounter.yaml"), []byte("log:\n  level: warn\n"), 0644))
	*confDir = dir
	*envFile = filepath.Join(dir, ".env")

	config := &Config{}
	a, err := setup(config)
	require.NoError(t, err)
	assert.Equal(t, counter.DriverNone, config.Store.Driver)
	assert.Equal(t, "127.0.0.1:0", config.HTTP.Addr)
	assert.Equal(t, "/api/track-download", config.Endpoint)
	assert.Equal(t, "warn", config.LogConfig.Level)
	assert.Equal(t, "resume:downloads:", config.Counter.KeyPrefix)

	require.True(t, a.services.Init())
	require.True(t, a.services.Start())
	defer a.services.Stop()

	addr, err := a.http.Addr()
	require.NoError(t, err)
	resp, err := http.Post(fmt.Sprintf("http://%s/api/track-download", addr), "application/json", nil)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true,"total":0,"note":"KV not configured yet"}`, string(body))
}

func TestSetupMissingConf(t *testing.T) {
	clearEnv(t)
	*confDir = t.TempDir()
	*envFile = ""
	_, err := setup(&Config{})
	assert.Error(t, err)
}

func TestSetupEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	env := "DLCOUNTER_ADDR=127.0.0.1:0\nDLCOUNTER_LOG_LEVEL=error\nDLCOUNTER_STORE_NAME=\"Vercel KV\"\nDLCOUNTER_KEY_PREFIX=site:dl:\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dlcounter.yaml"), []byte("log:\n  level: info\nstore:\n  name: KV\n"), 0644))
	*confDir = dir
	*envFile = filepath.Join(dir, ".env")

	config := &Config{}
	a, err := setup(config)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", config.HTTP.Addr)
	assert.Equal(t, "error", config.LogConfig.Level)
	assert.Equal(t, "Vercel KV", config.Store.Name)
	assert.Equal(t, "site:dl:", config.Counter.KeyPrefix)
	assert.Equal(t, "site:dl:total", a.counter.TotalKey())
	assert.Equal(t, "Vercel KV", a.counter.StoreName())
}
