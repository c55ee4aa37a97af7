package kalman

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Not parallel: the log streams are package state.
func TestLogStreams(t *testing.T) {
	var opsBuf, diagBuf, traceBuf bytes.Buffer
	SetLogWriters(&opsBuf, &diagBuf, &traceBuf)
	t.Cleanup(func() { SetLogWriters(nil, nil, nil) })

	f, err := NewFilter(1, 0, 0, 0, 0, 1)
	require.NoError(t, err)
	assert.Contains(t, diagBuf.String(), "[kalman] ")
	assert.Contains(t, diagBuf.String(), "new filter: dt=1")

	_, err = f.Update(Position{X: 1, Y: 2})
	require.NoError(t, err)
	assert.Contains(t, traceBuf.String(), "update: z=(1, 2)")
	assert.Empty(t, opsBuf.String())

	// Zero measurement noise leaves no position uncertainty for a second update.
	_, err = f.Update(Position{X: 1, Y: 2})
	require.ErrorIs(t, err, ErrNumerical)
	assert.Contains(t, opsBuf.String(), "update rejected")

	f.Predict()
	assert.Contains(t, traceBuf.String(), "predict: position=(1, 2)")
}

func TestLogStreamsDisabled(t *testing.T) {
	SetLogWriters(nil, nil, nil)
	assert.Nil(t, opsLogger)
	assert.Nil(t, diagLogger)
	assert.Nil(t, traceLogger)

	// Must not panic with every stream disabled.
	opsf("ops %d", 1)
	diagf("diag %d", 2)
	tracef("trace %d", 3)
}
