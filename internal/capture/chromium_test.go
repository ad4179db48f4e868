package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotOptionsDefaults(t *testing.T) {
	o := SnapshotOptions{URL: "http://127.0.0.1:8080/calendar", OutputPath: "out.png"}
	require.NoError(t, o.normalize())
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, DefaultTimeout, o.Timeout)
}

func TestSnapshotRequiresURLAndOutput(t *testing.T) {
	err := SnapshotCalendar(context.Background(), SnapshotOptions{OutputPath: "out.png"})
	assert.ErrorContains(t, err, "URL is required")

	err = SnapshotCalendar(context.Background(), SnapshotOptions{URL: "http://x/calendar"})
	assert.ErrorContains(t, err, "OutputPath is required")
}
