package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNext_IsTotal(t *testing.T) {
	defined := map[Status]bool{}
	for _, s := range allStatuses {
		defined[s] = true
	}

	for _, s := range allStatuses {
		for _, tr := range allTriggers {
			got := next(s, tr)
			assert.True(t, defined[got], "%s + %s -> undefined %d", s, tr, got)
		}
	}
}

func TestNext_DisconnectedAbsorbs(t *testing.T) {
	for _, tr := range allTriggers {
		assert.Equal(t, StatusDisconnected, next(StatusDisconnected, tr), tr.String())
	}
}

func TestNext_Transitions(t *testing.T) {
	tests := []struct {
		from    Status
		trigger trigger
		want    Status
	}{
		{StatusConnecting, triggerHandshakeOK, StatusConnected},
		{StatusConnecting, triggerHandshakeFailed, StatusConnecting},
		{StatusConnecting, triggerPollingStarted, StatusPolling},
		{StatusConnecting, triggerRetriesExhausted, StatusPolling},
		{StatusConnected, triggerChannelDropped, StatusReconnecting},
		{StatusConnected, triggerPollingStarted, StatusConnected},
		{StatusConnected, triggerIdentityInvalid, StatusDisconnected},
		{StatusReconnecting, triggerHandshakeOK, StatusConnected},
		{StatusReconnecting, triggerHandshakeFailed, StatusReconnecting},
		{StatusReconnecting, triggerPollingStarted, StatusPolling},
		{StatusPolling, triggerHandshakeOK, StatusConnected},
		{StatusPolling, triggerChannelDropped, StatusPolling},
		{StatusPolling, triggerRetriesExhausted, StatusPolling},
		{StatusPolling, triggerTeardown, StatusDisconnected},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.trigger.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, next(tt.from, tt.trigger))
		})
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "polling", StatusPolling.String())
	assert.Equal(t, "unknown", Status(42).String())
	assert.True(t, StatusConnected.Live())
	assert.False(t, StatusPolling.Live())
}
