package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	r := NewRecorder(t.TempDir(), true)

	key := r.key("blocked page", "https://shop.example.com/products?page=2")
	assert.Contains(t, key, "blocked_page_shop_example_com_")

	key = r.key("timeout", "not a url")
	assert.Contains(t, key, "timeout_unknown_")
}

func TestCaptureDisabled(t *testing.T) {
	r := NewRecorder(t.TempDir(), false)
	// Must be a no-op even with a nil page.
	r.Capture(nil, "blocked")
}
