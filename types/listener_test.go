package types

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListenerFuncs(t *testing.T) {
	t.Run("dispatches to configured funcs", func(t *testing.T) {
		var got []string
		l := &ListenerFuncs{
			NewInstance:     func(_ context.Context, runID string) { got = append(got, "new:"+runID) },
			Connect:         func(_ context.Context, runID string) { got = append(got, "connect:"+runID) },
			Disconnect:      func(_ context.Context, err error) { got = append(got, "disconnect:"+err.Error()) },
			HeartbeatFailed: func(_ context.Context, s HeartbeatStatus) { got = append(got, "hb") },
		}

		ctx := t.Context()
		l.OnConnectNewInstance(ctx, "a")
		l.OnConnect(ctx, "a")
		l.OnDisconnect(ctx, errors.New("eof"))
		l.OnHeartbeatFailed(ctx, HeartbeatStatus{TotalTimeouts: 1})

		require.Equal(t, []string{"new:a", "connect:a", "disconnect:eof", "hb"}, got)
	})

	t.Run("nil funcs are skipped", func(t *testing.T) {
		l := &ListenerFuncs{}
		require.NotPanics(t, func() {
			l.OnConnectNewInstance(t.Context(), "a")
			l.OnConnect(t.Context(), "a")
			l.OnDisconnect(t.Context(), nil)
			l.OnHeartbeatFailed(t.Context(), HeartbeatStatus{})
		})
	})
}
