package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Console(t *testing.T) {
	for _, mode := range []string{"development", "production"} {
		log, err := New(mode, "")
		require.NoError(t, err)
		log.Debug("hello")
	}
}

func TestNew_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := New("production", path)
	require.NoError(t, err)

	log.Info("table opened", zap.String("table", "T1"))
	_ = log.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	first := strings.SplitN(strings.TrimSpace(string(raw)), "\n", 2)[0]

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(first), &rec))
	assert.Equal(t, "table opened", rec["msg"])
	assert.Equal(t, "T1", rec["table"])
}
