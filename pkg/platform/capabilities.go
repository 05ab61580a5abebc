// Package platform holds facts about the host captured once at startup,
// chiefly whether to offer installing the shell integration.
package platform

import (
	"path/filepath"
	"strings"
	"sync"

	"yeetbank/pkg/store"
)

type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Env is what the process knew about its host at startup.
type Env struct {
	Interactive bool
	Shell       string
	Installed   bool
}

// Capabilities is constructed once and passed to whoever shows the install
// banner.
type Capabilities struct {
	kv    KV
	shell string

	mu          sync.Mutex
	installable bool
	installed   bool
	dismissed   bool
}

var supportedShells = map[string]bool{"bash": true, "zsh": true, "fish": true, "powershell": true}

// ShellName reduces a $SHELL path to a completion target, or "" if unsupported.
func ShellName(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), ".exe")
	if name == "pwsh" {
		name = "powershell"
	}
	if supportedShells[name] {
		return name
	}
	return ""
}

func Detect(kv KV, env Env) (*Capabilities, error) {
	v, ok, err := kv.Get(store.KeyInstallDismiss)
	if err != nil {
		return nil, err
	}
	shell := ShellName(env.Shell)
	return &Capabilities{
		kv:          kv,
		shell:       shell,
		installable: env.Interactive && shell != "" && !env.Installed,
		installed:   env.Installed,
		dismissed:   ok && v == "true",
	}, nil
}

func (c *Capabilities) Shell() string { return c.shell }

// ShowBanner reports whether the install offer should be displayed.
func (c *Capabilities) ShowBanner() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.installable && !c.installed && !c.dismissed
}

func (c *Capabilities) Installed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.installed
}

// Dismiss hides the banner for good.
func (c *Capabilities) Dismiss() error {
	c.mu.Lock()
	c.dismissed = true
	c.mu.Unlock()
	return c.kv.Set(store.KeyInstallDismiss, "true")
}

// MarkInstalled records a completed install and forgets an earlier dismissal.
func (c *Capabilities) MarkInstalled() error {
	c.mu.Lock()
	c.installed = true
	c.installable = false
	c.dismissed = false
	c.mu.Unlock()
	return c.kv.Delete(store.KeyInstallDismiss)
}
