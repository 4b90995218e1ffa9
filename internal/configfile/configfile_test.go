package configfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/richkmeli/portscanner/internal/scanconfig"
)

func TestSaveLoad_JSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")

	cfg := scanconfig.Default()
	cfg.Target = "example.test"
	cfg.Ports = []uint16{22, 80, 443}
	cfg.ServiceDetection = true

	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Target, loaded.Target)
	require.Equal(t, []uint16{22, 80, 443}, loaded.Ports)
	require.True(t, loaded.ServiceDetection, "service_detection should round-trip as true")
}

func TestSaveLoad_XMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.xml")

	cfg := scanconfig.Default()
	cfg.Target = "10.0.0.1"
	cfg.Ports = []uint16{21, 22}
	cfg.IPVersion = scanconfig.IPv6
	cfg.ScanType = scanconfig.UDP

	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Target, loaded.Target)
	require.Equal(t, scanconfig.IPv6, loaded.IPVersion)
	require.Equal(t, scanconfig.UDP, loaded.ScanType)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target: x"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/cfg.json")
	require.Error(t, err)
}

func TestMerge_CLIOverridesFile(t *testing.T) {
	file := scanconfig.Default()
	file.Target = "fromfile"
	file.TimeoutMillis = 1000
	file.Concurrency = 50

	cli := scanconfig.ScanConfig{Target: "fromcli"}
	merged := Merge(file, cli)

	require.Equal(t, "fromcli", merged.Target)
	require.Equal(t, 1000, merged.TimeoutMillis, "cli left timeout zero, file's value should win")
	require.Equal(t, 50, merged.Concurrency, "cli left concurrency zero, file's value should win")
}

func TestMerge_CLINonZeroFieldsWin(t *testing.T) {
	file := scanconfig.Default()
	file.TimeoutMillis = 1000
	file.Concurrency = 50

	cli := scanconfig.ScanConfig{Target: "fromcli", TimeoutMillis: 2000, Concurrency: 200}
	merged := Merge(file, cli)

	require.Equal(t, 2000, merged.TimeoutMillis)
	require.Equal(t, 200, merged.Concurrency)
}
