package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartSpinnerDisabled(t *testing.T) {
	t.Parallel()
	stop := startSpinner(false, "testing")
	require.NotNil(t, stop)
	stop()
}

func TestSpinWritesAndStopsOnce(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	stop := spin(&buf, "Transcribing", 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	stop()
	stop()

	require.Contains(t, buf.String(), "Transcribing")
}
