package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvent_AckURL(t *testing.T) {
	e := Event{BaseURL: "https://bullet.example.com", TicketID: "tkt-1", AckToken: "tok-123"}
	assert.Equal(t, "https://bullet.example.com/ack/tkt-1?token=tok-123", e.AckURL())

	assert.Empty(t, Event{BaseURL: "https://bullet.example.com"}.AckURL())
	assert.Empty(t, Event{AckToken: "tok-123"}.AckURL())
}

func TestEvent_DetailURL(t *testing.T) {
	e := Event{BaseURL: "https://bullet.example.com", TicketID: "tkt-1"}
	assert.Equal(t, "https://bullet.example.com/tickets/tkt-1", e.DetailURL())

	assert.Empty(t, Event{BaseURL: "https://bullet.example.com"}.DetailURL())
	assert.Empty(t, Event{TicketID: "tkt-1"}.DetailURL())
}
