package natsadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubjects(t *testing.T) {
	assert.Equal(t, "fieldtrack.session.s1.commands", CommandSubject("s1"))
	assert.Equal(t, "fieldtrack.session.s1.events", EventSubject("s1"))
}

func TestNewConnSides(t *testing.T) {
	host := NewConn(nil, "s1", HostSide)
	assert.Equal(t, CommandSubject("s1"), host.send)
	assert.Equal(t, EventSubject("s1"), host.listen)

	rend := NewConn(nil, "s1", RendererSide)
	assert.Equal(t, EventSubject("s1"), rend.send)
	assert.Equal(t, CommandSubject("s1"), rend.listen)
}
