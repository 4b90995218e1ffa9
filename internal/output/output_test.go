package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/richkmeli/portscanner/internal/result"
)

func sampleSink() *result.Sink {
	s := result.NewSink(2)
	s.Add(result.ScanResult{
		Port: 80, Status: result.Open, ResponseTime: 12 * time.Millisecond,
		Service: result.ServiceInfo{Name: "http", Confidence: 0.9}, Banner: "HTTP/1.1 200 OK",
	})
	s.Add(result.ScanResult{Port: 81, Status: result.Closed})
	return s
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleSink(), "127.0.0.1", 50*time.Millisecond))
	out := buf.String()
	require.Contains(t, out, "80/tcp")
	require.Contains(t, out, "http")
	require.Contains(t, out, "open=1")
	require.Contains(t, out, "closed=1")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleSink(), "127.0.0.1", 50*time.Millisecond))
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Equal(t, "127.0.0.1", doc["target"])

	summary, ok := doc["summary"].(map[string]interface{})
	require.True(t, ok, "summary missing or wrong shape: %+v", doc)
	require.Equal(t, float64(1), summary["open"])
}

func TestWriteXML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXML(&buf, sampleSink(), "127.0.0.1", 50*time.Millisecond))
	out := buf.String()
	require.Contains(t, out, "<scan_result>")
	require.Contains(t, out, "<target>127.0.0.1</target>")
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, Write(&buf, sampleSink(), "x", 0, "yaml"))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "results.json")

	require.NoError(t, WriteFileAtomic(sampleSink(), "127.0.0.1", 50*time.Millisecond, FormatJSON, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc), "written file is not valid json")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "portscan-") && strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("temp file %s was left behind after atomic write", e.Name())
		}
	}
}
