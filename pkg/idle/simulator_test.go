package idle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifung-0/lightsail-auto/pkg/browser/domtest"
	"github.com/ifung-0/lightsail-auto/pkg/idle"
)

func TestInstallRegistersVisibilityOverride(t *testing.T) {
	dom := domtest.NewFakeDOM("about:blank")
	sim := idle.New(dom, nil)

	require.NoError(t, sim.Install())
	require.Len(t, dom.InitScripts, 1)
	assert.Contains(t, dom.InitScripts[0], "visibilityState")
	assert.Contains(t, dom.InitScripts[0], "mousemove")
}

func TestRunEmitsActivityUntilCancelled(t *testing.T) {
	dom := domtest.NewFakeDOM("about:blank")
	sim := idle.New(dom, nil, idle.WithTick(time.Millisecond), idle.WithSeed(1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sim.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return dom.MouseMoveCount() >= 3
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
