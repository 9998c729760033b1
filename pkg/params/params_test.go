package params

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msulab/heaterpsu/pkg/dac"
)

func TestDefault(t *testing.T) {
	p := Default()

	assert.Equal(t, StorageVersion, p.Version)
	assert.Equal(t, dac.DefaultCalibration(), p.Calibration)
	assert.InDelta(t, 5.0, p.SoftSentinel, 1e-6)
	assert.InDelta(t, 5.0, p.LastVLim, 1e-6)
	assert.InDelta(t, 0.0, p.LastPower, 1e-6)
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")

	p := Default()
	p.Calibration = dac.Calibration{GainVPwr: 123.4, OffsetVPwr: 1, GainVLim: 31.5, OffsetVLim: 2}
	p.SoftSentinel = 2.5
	p.LastPower = 1.2
	p.LastVLim = 6.0
	require.NoError(t, p.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)
}

func TestLoadVersionMismatchResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\ndac_soft_sentinel: 9.0\n"), 0644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestLoadFillsZeroedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 3\nlast_set_vlim: 6.5\n"), 0644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dac.DefaultCalibration(), p.Calibration)
	assert.InDelta(t, 5.0, p.SoftSentinel, 1e-6)
	assert.InDelta(t, 6.5, p.LastVLim, 1e-6)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveStampsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")

	p := Default()
	p.Version = 0
	require.NoError(t, p.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StorageVersion, loaded.Version)
}
