package platform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yeetbank/pkg/platform"
	"yeetbank/pkg/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	kv, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestShellName(t *testing.T) {
	tests := map[string]string{
		"/bin/bash":           "bash",
		"/usr/bin/zsh":        "zsh",
		"/usr/local/bin/fish": "fish",
		"pwsh.exe":            "powershell",
		"/bin/sh":             "",
		"":                    "",
	}
	for in, want := range tests {
		assert.Equal(t, want, platform.ShellName(in), in)
	}
}

func TestBannerVisibility(t *testing.T) {
	kv := openStore(t)

	c, err := platform.Detect(kv, platform.Env{Interactive: true, Shell: "/bin/zsh"})
	require.NoError(t, err)
	assert.True(t, c.ShowBanner())
	assert.Equal(t, "zsh", c.Shell())

	c, err = platform.Detect(kv, platform.Env{Interactive: false, Shell: "/bin/zsh"})
	require.NoError(t, err)
	assert.False(t, c.ShowBanner())

	c, err = platform.Detect(kv, platform.Env{Interactive: true, Shell: "/bin/zsh", Installed: true})
	require.NoError(t, err)
	assert.False(t, c.ShowBanner())
	assert.True(t, c.Installed())
}

func TestDismissPersists(t *testing.T) {
	kv := openStore(t)
	env := platform.Env{Interactive: true, Shell: "/bin/bash"}

	c, err := platform.Detect(kv, env)
	require.NoError(t, err)
	require.NoError(t, c.Dismiss())
	assert.False(t, c.ShowBanner())

	v, ok, err := kv.Get(store.KeyInstallDismiss)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	again, err := platform.Detect(kv, env)
	require.NoError(t, err)
	assert.False(t, again.ShowBanner())

	require.NoError(t, again.MarkInstalled())
	_, ok, err = kv.Get(store.KeyInstallDismiss)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, again.Installed())
}
