package push_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/portal-notify/internal/push"
)

func TestLocalChannel_OnAndOff(t *testing.T) {
	ch := push.NewLocalChannel()

	var got []string
	off := ch.On("ping", func(data json.RawMessage) {
		var s string
		require.NoError(t, json.Unmarshal(data, &s))
		got = append(got, s)
	})

	require.NoError(t, ch.Emit("ping", "a"))
	require.NoError(t, ch.Emit("other", "ignored"))
	off()
	off()
	require.NoError(t, ch.Emit("ping", "b"))

	assert.Equal(t, []string{"a"}, got)
	assert.Zero(t, ch.HandlerCount())
}

func TestLocalChannel_HandlerMayDetachItself(t *testing.T) {
	ch := push.NewLocalChannel()

	calls := 0
	var off func()
	off = ch.On("once", func(json.RawMessage) {
		calls++
		off()
	})

	require.NoError(t, ch.Emit("once", nil))
	require.NoError(t, ch.Emit("once", nil))
	assert.Equal(t, 1, calls)
}

func TestLocalChannel_EmitRejectsUnmarshalable(t *testing.T) {
	ch := push.NewLocalChannel()
	assert.Error(t, ch.Emit("bad", make(chan int)))
}
