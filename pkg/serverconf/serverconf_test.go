package serverconf_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssforge/ssforge/pkg/host/fsutil"
	"github.com/ssforge/ssforge/pkg/serverconf"
)

func TestFromEnv(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		p, err := serverconf.FromEnv()
		require.NoError(t, err)
		assert.Equal(t, serverconf.Defaults(), p)
	})

	t.Run("Overrides", func(t *testing.T) {
		t.Setenv("PORT", "9000")
		t.Setenv("PASS", "hunter2")
		t.Setenv("METHOD", "chacha20-ietf-poly1305")
		t.Setenv("MODE", "tcp_only")
		t.Setenv("TIMEOUT", "120")

		p, err := serverconf.FromEnv()
		require.NoError(t, err)
		assert.Equal(t, serverconf.Params{
			Port:     9000,
			Password: "hunter2",
			Method:   "chacha20-ietf-poly1305",
			Mode:     serverconf.ModeTCPOnly,
			Timeout:  120,
		}, p)
	})

	t.Run("BadPort", func(t *testing.T) {
		t.Setenv("PORT", "not-a-number")
		_, err := serverconf.FromEnv()
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	mutate := func(f func(*serverconf.Params)) serverconf.Params {
		p := serverconf.Defaults()
		f(&p)
		return p
	}

	tests := []struct {
		name    string
		params  serverconf.Params
		wantErr bool
	}{
		{"Defaults", serverconf.Defaults(), false},
		{"PortTooLow", mutate(func(p *serverconf.Params) { p.Port = 0 }), true},
		{"PortTooHigh", mutate(func(p *serverconf.Params) { p.Port = 70000 }), true},
		{"EmptyPassword", mutate(func(p *serverconf.Params) { p.Password = "" }), true},
		{"UnknownMethod", mutate(func(p *serverconf.Params) { p.Method = "rot13" }), true},
		{"UnknownMode", mutate(func(p *serverconf.Params) { p.Mode = "carrier-pigeon" }), true},
		{"ZeroTimeout", mutate(func(p *serverconf.Params) { p.Timeout = 0 }), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "config.json")

	params := serverconf.Params{
		Port:     9000,
		Password: `p@ss"word`,
		Method:   "aes-256-gcm",
		Mode:     serverconf.ModeTCPAndUDP,
		Timeout:  60,
	}
	bak, err := serverconf.Write(path, params, 10)
	require.NoError(t, err)
	assert.Empty(t, bak, "first write has nothing to back up")

	// The file is well-formed JSON carrying the supplied values verbatim,
	// including characters that would have broken naive templating.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, float64(9000), got["server_port"])
	assert.Equal(t, `p@ss"word`, got["password"])
	assert.Equal(t, "aes-256-gcm", got["method"])
	assert.Equal(t, "tcp_and_udp", got["mode"])
	assert.Equal(t, float64(60), got["timeout"])
	assert.Equal(t, float64(1080), got["local_port"])
	assert.Equal(t, true, got["fast_open"])
	assert.Equal(t, true, got["reuse_port"])
	assert.Equal(t, true, got["no_delay"])
	assert.Equal(t, []interface{}{"0.0.0.0", "::"}, got["server"])

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), fi.Mode().Perm())

	di, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), di.Mode().Perm())

	t.Run("RerunIsIdempotent", func(t *testing.T) {
		bak, err := serverconf.Write(path, params, 10)
		require.NoError(t, err)
		require.NotEmpty(t, bak)

		again, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, data, again)

		baks, err := fsutil.Backups(path)
		require.NoError(t, err)
		assert.Len(t, baks, 1)
	})

	t.Run("PortChangeBacksUpPrior", func(t *testing.T) {
		before, err := fsutil.Backups(path)
		require.NoError(t, err)

		changed := params
		changed.Port = 9001
		bak, err := serverconf.Write(path, changed, 10)
		require.NoError(t, err)
		require.NotEmpty(t, bak)

		f, err := serverconf.Load(path)
		require.NoError(t, err)
		assert.Equal(t, 9001, f.ServerPort)

		after, err := fsutil.Backups(path)
		require.NoError(t, err)
		assert.Len(t, after, len(before)+1)

		// The newest backup holds the prior rendering.
		prior, err := os.ReadFile(after[len(after)-1])
		require.NoError(t, err)
		assert.Equal(t, data, prior)
	})

	t.Run("RetentionBoundsBackups", func(t *testing.T) {
		for i := 0; i < 6; i++ {
			_, err := serverconf.Write(path, params, 3)
			require.NoError(t, err)
		}
		baks, err := fsutil.Backups(path)
		require.NoError(t, err)
		assert.Len(t, baks, 3)
	})

	t.Run("PruneFailureDoesNotFailWrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		_, err := serverconf.Write(path, params, 1)
		require.NoError(t, err)

		// A non-empty directory matching the backup glob cannot be
		// removed, so pruning fails; the write must still succeed.
		stuck := path + ".bak.00000000T000000.000000000"
		require.NoError(t, os.MkdirAll(stuck, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(stuck, "f"), []byte("x"), 0644))

		_, err = serverconf.Write(path, params, 1)
		require.NoError(t, err)

		f, err := serverconf.Load(path)
		require.NoError(t, err)
		assert.Equal(t, params.Port, f.ServerPort)
	})

	t.Run("InvalidParamsLeaveFileAlone", func(t *testing.T) {
		current, err := os.ReadFile(path)
		require.NoError(t, err)

		bad := params
		bad.Port = -1
		_, err = serverconf.Write(path, bad, 10)
		require.Error(t, err)

		after, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, current, after)
	})
}

func TestGeneratePassword(t *testing.T) {
	a, err := serverconf.GeneratePassword()
	require.NoError(t, err)
	b, err := serverconf.GeneratePassword()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.GreaterOrEqual(t, len(a), 24)
}
