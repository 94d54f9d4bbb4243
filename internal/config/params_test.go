package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/errors"
)

const sample = `{
	// feature switches
	"switches": {
		"motion_switch": true,
		"repeated_motion_switch": false,
	},
	/* timeouts in seconds unless suffixed */
	"parameters": {
		"dark_timeout": 45,
		"motion_detection_timeout_ms": 410,
	},
	"intervals": {
		"nap_maint_interval": [1, 2, 5],
	},
}`

func TestParse_CommentsAndTrailingCommas(t *testing.T) {
	p, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.True(t, p.GetBool("motion_switch", false))
	assert.False(t, p.GetBool("repeated_motion_switch", true))
	assert.True(t, p.GetBool("absent_switch", true))

	assert.Equal(t, 45, p.GetInt("dark_timeout", 0))
	assert.Equal(t, 7, p.GetInt("absent", 7))
	assert.Equal(t, 45*time.Second, p.Seconds("dark_timeout", time.Minute))
	assert.Equal(t, 410*time.Millisecond, p.Millis("motion_detection_timeout_ms", 0))
	assert.Equal(t, time.Minute, p.Seconds("absent", time.Minute))

	assert.Equal(t, []int{1, 2, 5}, p.GetList("nap_maint_interval"))
	assert.Nil(t, p.GetList("sleep_maint_interval"))
}

func TestGetList_ReturnsCopy(t *testing.T) {
	p, err := Parse([]byte(sample))
	require.NoError(t, err)

	l := p.GetList("nap_maint_interval")
	l[0] = 99
	assert.Equal(t, []int{1, 2, 5}, p.GetList("nap_maint_interval"))
}

func TestParse_Rejects(t *testing.T) {
	_, err := Parse([]byte(`{"parameters": {"dark_timeout": "soon"}}`))
	assert.True(t, serrors.Is(err, serrors.ErrCodeConfigInvalid))

	_, err = Parse([]byte(`{"parameters": {"dark_timeout": -1}}`))
	assert.True(t, serrors.Is(err, serrors.ErrCodeConfigInvalid))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_standby_config.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.True(t, p.GetBool("motion_switch", false))

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, serrors.Is(err, serrors.ErrCodeConfigMissing))
}

func TestEmpty(t *testing.T) {
	p := Empty()
	assert.False(t, p.GetBool("motion_switch", false))
	assert.Equal(t, 3, p.GetInt("x", 3))
	assert.Nil(t, p.GetList("x"))
}

func TestLoad_ShippedConfig(t *testing.T) {
	p, err := Load(filepath.Join("..", "..", "configs", "device_standby_config.json"))
	require.NoError(t, err)

	assert.True(t, p.GetBool("motion_switch", false))
	assert.Equal(t, 410*time.Millisecond, p.Millis("motion_detection_timeout_ms", 0))
	assert.Equal(t, []int{3600, 7200, 14400, 21600}, p.GetList("sleep_maint_interval"))
}
