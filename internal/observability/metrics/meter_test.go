package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elev8/access/internal/access"
	"github.com/elev8/access/internal/guard"
)

func TestAccessMetrics_Disabled(t *testing.T) {
	m, err := NewAccessMetrics(New(Config{Enabled: false}, "elev8-access"))
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordDecision(ctx, guard.Decision{State: guard.StateUnauthenticated})
		m.RecordDecision(ctx, guard.Decision{State: guard.StateAccessGranted, Role: access.RoleStaff})
		m.RecordProfileLookup(ctx, 20*time.Millisecond, nil)
		m.RecordProfileLookup(ctx, 5*time.Second, errors.New("timeout"))
		m.WatcherOpened(ctx)
		m.WatcherClosed(ctx)
	})

	var _ guard.Recorder = m
}
