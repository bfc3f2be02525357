package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestShutdownManager_ReverseOrder(t *testing.T) {
	sm := NewShutdownManager(logrus.New(), 0)

	var order []string
	for _, name := range []string{"tracer", "server", "log"} {
		name := name
		sm.Register(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	assert.NoError(t, sm.Shutdown())
	assert.Equal(t, []string{"log", "server", "tracer"}, order)

	// second call is a no-op
	assert.NoError(t, sm.Shutdown())
	assert.Len(t, order, 3)
}

func TestShutdownManager_JoinsErrors(t *testing.T) {
	sm := NewShutdownManager(logrus.New(), 0)
	errA := errors.New("a failed")
	ran := false

	sm.Register("a", func(context.Context) error { return errA })
	sm.Register("b", func(context.Context) error { ran = true; return nil })

	err := sm.Shutdown()
	assert.ErrorIs(t, err, errA)
	assert.True(t, ran)
}
