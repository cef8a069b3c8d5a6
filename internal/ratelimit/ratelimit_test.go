package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow(t *testing.T) {
	l := New(3, time.Minute)
	clock := time.Now()
	l.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("1.2.3.4"), "request %d", i)
	}
	assert.False(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("5.6.7.8"))

	// One request refills after a third of the window
	clock = clock.Add(20 * time.Second)
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))
}

func TestCleanup(t *testing.T) {
	l := New(10, time.Minute)
	clock := time.Now()
	l.now = func() time.Time { return clock }
	l.Allow("a")
	clock = clock.Add(30 * time.Second)
	l.Allow("b")
	clock = clock.Add(45 * time.Second)
	l.Cleanup()
	assert.Equal(t, 1, l.Clients())
}

func TestDisabled(t *testing.T) {
	l := New(0, time.Minute)
	assert.Nil(t, l)
	assert.True(t, l.Allow("anyone"))
}

func TestClientIPIgnoresForwardedHeaderByDefault(t *testing.T) {
	l := New(10, time.Minute)
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1", l.ClientIP(r))
	r.Header.Set("X-Forwarded-For", "192.168.1.1, 10.0.0.2")
	assert.Equal(t, "10.0.0.1", l.ClientIP(r))
}

func TestClientIPBehindTrustedProxy(t *testing.T) {
	l := New(10, time.Minute)
	require.NoError(t, l.TrustProxies([]string{"10.0.0.0/8", "172.16.0.5"}))

	tests := []struct {
		remote, forwarded, want string
	}{
		{"10.0.0.1:1234", "", "10.0.0.1"},
		{"10.0.0.1:1234", "203.0.113.7", "203.0.113.7"},
		// Entries left of the first untrusted hop are written by the client
		{"10.0.0.1:1234", "1.1.1.1, 203.0.113.7, 172.16.0.5", "203.0.113.7"},
		{"10.0.0.1:1234", "garbage, 203.0.113.7", "203.0.113.7"},
		{"10.0.0.1:1234", "203.0.113.7, garbage", "10.0.0.1"},
		// Requests not coming from a trusted proxy are taken as they are
		{"198.51.100.3:80", "203.0.113.7", "198.51.100.3"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = tt.remote
		if tt.forwarded != "" {
			r.Header.Set("X-Forwarded-For", tt.forwarded)
		}
		assert.Equal(t, tt.want, l.ClientIP(r), "%s via %s", tt.forwarded, tt.remote)
	}
}

func TestTrustProxiesRejectsGarbage(t *testing.T) {
	l := New(10, time.Minute)
	assert.Error(t, l.TrustProxies([]string{"not-an-ip"}))
	assert.Error(t, l.TrustProxies([]string{"10.0.0.0/99"}))
	assert.NoError(t, l.TrustProxies([]string{"::1", "fd00::/8"}))
}

func TestSpoofedForwardedHeaderKeepsBucket(t *testing.T) {
	l := New(2, time.Minute)
	clock := time.Now()
	l.now = func() time.Time { return clock }
	for i, fwd := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = "198.51.100.3:4000"
		r.Header.Set("X-Forwarded-For", fwd)
		assert.Equal(t, i < 2, l.Allow(l.ClientIP(r)), "request %d", i)
	}
}
