package browser

import (
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/agent-backend/internal/config"
)

// The allocator options are opaque closures, so these tests assert on option
// counts relative to a baseline configuration.
func TestExecAllocatorOptions(t *testing.T) {
	baseline := len(execAllocatorOptions(config.BrowserConfig{}))
	assert.Greater(t, baseline, len(chromedp.DefaultExecAllocatorOptions),
		"baseline should extend the chromedp defaults with stability flags")

	t.Run("Headless", func(t *testing.T) {
		opts := execAllocatorOptions(config.BrowserConfig{Headless: true})
		assert.Len(t, opts, baseline+1)
	})

	t.Run("DisableGPU", func(t *testing.T) {
		opts := execAllocatorOptions(config.BrowserConfig{DisableGPU: true})
		assert.Len(t, opts, baseline+1)
	})

	t.Run("ExecPath", func(t *testing.T) {
		opts := execAllocatorOptions(config.BrowserConfig{ExecPath: "/usr/bin/chromium"})
		assert.Len(t, opts, baseline+1)
	})

	t.Run("CustomArgs", func(t *testing.T) {
		cfg := config.BrowserConfig{
			Args: []string{"no-zygote", "--disable-extensions", "remote-debugging-port=9222"},
		}
		opts := execAllocatorOptions(cfg)
		// Each arg becomes exactly one flag, whether boolean or key=value.
		assert.Len(t, opts, baseline+3)
	})

	t.Run("Combined", func(t *testing.T) {
		cfg := config.BrowserConfig{
			Headless:   true,
			DisableGPU: true,
			Args:       []string{"--mute-audio"},
		}
		opts := execAllocatorOptions(cfg)
		assert.Len(t, opts, baseline+3)
	})
}
