package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_JSONComponent(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	l := New()
	require.NoError(t, l.Configure("debug", "json", "stdout", 0))

	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.WithComponent("oracle").WithFields(Fields{"slot": 42}).Info("answer decoded")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "answer decoded", line["message"])
	assert.Equal(t, "oracle", line["component"])
	assert.Equal(t, float64(42), line["slot"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
}

func TestConfigure_EnvOverridesLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")

	l := New()
	require.NoError(t, l.Configure("debug", "text", "stderr", 0))
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())
}

func TestConfigure_Invalid(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	l := New()
	assert.Error(t, l.Configure("loud", "text", "stderr", 0))
	assert.Error(t, l.Configure("info", "xml", "stderr", 0))
}

func TestConfigure_FileOutput(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "oracle.log")
	l := New()
	require.NoError(t, l.Configure("info", "text", path, 0))

	l.WithComponent("test").Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}
