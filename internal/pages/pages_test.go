package pages

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWith(t *testing.T) {
	require.Equal(t, LockerRegister, With(LockerRegister, nil))
	require.Equal(t, "/locker/register?flow=abc", With(LockerRegister, url.Values{"flow": {"abc"}}))
}
