package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStopsInOrderAndJoinsErrors(t *testing.T) {
	var order []string
	boom := errors.New("boom")
	err := Run(
		Step{Name: "server", Stop: func() error { order = append(order, "server"); return nil }},
		Step{Name: "skipped"},
		Step{Name: "store", Stop: func() error { order = append(order, "store"); return boom }},
		Step{Name: "logger", Stop: func() error { order = append(order, "logger"); return nil }},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"server", "store", "logger"}, order)
}

func TestSignalHandlerCancel(t *testing.T) {
	ctx, cancel := SetupSignalHandler(context.Background())
	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
}

func TestSignalHandlerFollowsParent(t *testing.T) {
	parent, stop := context.WithCancel(context.Background())
	ctx, cancel := SetupSignalHandler(parent)
	defer cancel()
	stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled with parent")
	}
}
