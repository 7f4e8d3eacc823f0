package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abcd"))
	assert.Equal(t, "****7890", MaskSecret("APP_USR-1234567890"))
}

func TestMaskKeys(t *testing.T) {
	out := MaskKeys(map[string]any{
		"signature": "ts=1,v1=deadbeefcafe",
		"amount":    "100.00",
		"nested": map[string]any{
			"access_token": "TEST-123456",
		},
		"": "dropped",
	})

	assert.Equal(t, "****cafe", out["signature"])
	assert.Equal(t, "100.00", out["amount"])
	assert.Equal(t, map[string]any{"access_token": "****3456"}, out["nested"])
	assert.NotContains(t, out, "")
	assert.Nil(t, MaskKeys(nil))
}
