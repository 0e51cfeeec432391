package stats

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsAndTextfile(t *testing.T) {
	require.NoError(t, Init("test_", "run-1"))
	assert.ErrorIs(t, Init("test_", "run-2"), ErrStatsAlreadyInitialized)
	Reset()

	ItemDispatchedIncr("receipt")
	ItemDispatchedIncr("invoice")
	DocumentSucceeded("receipt", 2048, 2*time.Second)
	DocumentFailed("invoice", 4*time.Second)

	assert.Equal(t, uint64(1), DocumentsSucceededGet())
	assert.Equal(t, uint64(1), DocumentsFailedGet())
	assert.Equal(t, uint64(2048), BytesSavedGet())

	m := GetMap()
	assert.Equal(t, uint64(2), m["Items dispatched"])
	assert.Equal(t, "2.0 kB", m["Bytes saved"])
	assert.Equal(t, "3s", m["Mean fetch time"])

	assert.ErrorIs(t, WriteTextfile(""), ErrNoMetricsPath)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, `test_documents_saved{hostname=`))
	assert.True(t, strings.Contains(out, `type="invoice"`))
	assert.True(t, strings.Contains(out, `run="run-1"`))
}
