package netmon

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTarget_DefaultRoute(t *testing.T) {
	tg := newTarget("", 0)

	assert.False(t, tg.isName())
	ip, ok := tg.resolve(context.Background())
	assert.True(t, ok)
	assert.Nil(t, ip)
}

func TestTarget_Literal(t *testing.T) {
	for _, host := range []string{"192.0.2.1", "2001:db8::1", "[2001:db8::1]"} {
		tg := newTarget(host, 0)
		tg.lookup = func(context.Context, string) ([]net.IPAddr, error) {
			t.Fatal("literal must not be looked up")
			return nil, nil
		}

		assert.False(t, tg.isName(), host)
		ip, ok := tg.resolve(context.Background())
		require.True(t, ok, host)
		assert.NotNil(t, ip, host)
	}
}

func TestTarget_NamePrefersIPv4(t *testing.T) {
	tg := newTarget("example.test", 0)
	tg.lookup = func(_ context.Context, host string) ([]net.IPAddr, error) {
		assert.Equal(t, "example.test", host)
		return []net.IPAddr{{IP: net.ParseIP("2001:db8::1")}, {IP: net.ParseIP("192.0.2.7")}}, nil
	}

	assert.True(t, tg.isName())
	ip, ok := tg.resolve(context.Background())
	require.True(t, ok)
	assert.Equal(t, "192.0.2.7", ip.String())
}

func TestTarget_LookupFailureFallsBack(t *testing.T) {
	tg := newTarget("example.test", 0)

	fail := true
	tg.lookup = func(context.Context, string) ([]net.IPAddr, error) {
		if fail {
			return nil, errors.New("no such host")
		}
		return []net.IPAddr{{IP: net.ParseIP("192.0.2.7")}}, nil
	}

	_, ok := tg.resolve(context.Background())
	assert.False(t, ok, "never resolved")

	fail = false
	_, ok = tg.resolve(context.Background())
	require.True(t, ok)

	fail = true
	ip, ok := tg.resolve(context.Background())
	require.True(t, ok)
	assert.Equal(t, "192.0.2.7", ip.String())
}
