// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kazipath/kazipath/services/assistant/datatypes"
)

func TestHashIdentity(t *testing.T) {
	a := HashIdentity("user-1")
	b := HashIdentity("user-1")
	c := HashIdentity("user-2")

	// Stable, distinct, hex-encoded SHA-256, and never the raw id.
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
	assert.NotContains(t, a, "user-1")
}

func TestEnqueue_NeverBlocksWhenQueueFull(t *testing.T) {
	// No worker running: the queue fills and further writes must drop
	// rather than block the caller.
	s := NewStore(nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < DefaultQueueSize+50; i++ {
			s.AppendTurn(datatypes.NewChatTurn("user-1", datatypes.RoleUser, "m", ""))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}
	assert.Len(t, s.queue, DefaultQueueSize)
}

func TestLogIntent_QueuesHashedIdentity(t *testing.T) {
	s := NewStore(nil)
	s.LogIntent("user-1", datatypes.IntentUnsafe)

	op := <-s.queue
	assert.Equal(t, "intent", op.kind)
	assert.Equal(t, HashIdentity("user-1"), op.hash)
	assert.NotEqual(t, "user-1", op.hash)
	assert.Equal(t, datatypes.IntentUnsafe, op.intent)
}
