package push

import (
	"encoding/json"
	"fmt"
)

// LocalChannel is an in-process Channel. Emit delivers synchronously on
// the caller's goroutine.
type LocalChannel struct {
	registry
}

// NewLocalChannel creates an empty LocalChannel.
func NewLocalChannel() *LocalChannel {
	return &LocalChannel{}
}

// Emit marshals payload and delivers it to every handler for event. A nil
// payload is delivered as an empty message.
func (c *LocalChannel) Emit(event string, payload any) error {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling %s payload: %w", event, err)
		}
		data = b
	}
	c.emit(event, data)
	return nil
}

// Close is a no-op.
func (c *LocalChannel) Close() error { return nil }
