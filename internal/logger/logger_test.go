package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerService_WritesAuditLines(t *testing.T) {
	dir := t.TempDir()
	svc := NewLoggerService(map[string]interface{}{
		"folder_path":    dir,
		"max_file_mb":    float64(1),
		"retention_days": 7,
	})
	require.NoError(t, svc.Start())
	SetGlobalLogger(svc)
	defer SetGlobalLogger(nil)

	Audit("payout %s accepted", "abc")
	Error("insert failed: %v", "boom")
	require.NoError(t, svc.Stop())

	files, err := filepath.Glob(filepath.Join(dir, "ledger_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "[AUDIT] payout abc accepted")
	assert.Contains(t, string(data), "[ERROR] insert failed: boom")
}

func TestNewLoggerService_Defaults(t *testing.T) {
	svc := NewLoggerService(map[string]interface{}{})
	assert.Equal(t, "./logs", svc.folderPath)
	assert.Zero(t, svc.maxFileBytes)
	assert.Equal(t, "logger", svc.Name())
}
