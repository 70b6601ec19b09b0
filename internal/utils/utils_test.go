package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret(32)
	require.NoError(t, err)
	b, err := GenerateSecret(32)
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestParseUserAgent(t *testing.T) {
	t.Run("Server Client", func(t *testing.T) {
		info := ParseUserAgent("Go-http-client/1.1")
		assert.True(t, info.IsServer)
		assert.Equal(t, "Go-http-client", info.Client)
		assert.Equal(t, "1.1", info.ClientVer)
	})

	t.Run("Browser", func(t *testing.T) {
		info := ParseUserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		assert.False(t, info.IsServer)
		assert.Equal(t, "Chrome", info.Client)
		assert.False(t, info.IsMobile)
	})

	t.Run("Unknown", func(t *testing.T) {
		info := ParseUserAgent("")
		assert.Equal(t, "Unknown", info.Client)
		assert.Equal(t, "Unknown", info.OS)
	})
}

func TestGetRealIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		headers  map[string]string
		expected string
	}{
		{name: "X-Real-IP", headers: map[string]string{"X-Real-IP": "203.0.113.7"}, expected: "203.0.113.7"},
		{name: "First public forwarded", headers: map[string]string{"X-Forwarded-For": "10.0.0.3, 198.51.100.20, 203.0.113.9"}, expected: "198.51.100.20"},
		{name: "All private forwarded", headers: map[string]string{"X-Forwarded-For": "10.0.0.3, 192.168.1.1"}, expected: "10.0.0.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, GetRealIP(c))
		})
	}
}
