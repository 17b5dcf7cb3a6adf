package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("cause")
	err := fmt.Errorf("outer: %w", BroadcastError("send 0x01", cause))

	require.True(t, IsKind(err, KindBroadcast))
	require.False(t, IsKind(err, KindRPC))
	require.Equal(t, KindBroadcast, KindOf(err))
	require.ErrorIs(t, err, cause)
	require.Equal(t, "outer: BroadcastError: send 0x01: cause", err.Error())

	require.Equal(t, ErrorKind(0), KindOf(cause))
	require.Equal(t, "ConfigError", KindConfig.String())
	require.Equal(t, "RpcError", KindRPC.String())
	require.Equal(t, "SigningError", KindSigning.String())
}
