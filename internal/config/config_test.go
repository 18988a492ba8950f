package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/seismic_analyze/internal/integrate"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	assert.Equal(t, integrate.PolicyTrapezoidPosition, cfg.IntegrationPolicy)
	assert.Equal(t, 0.24375, cfg.SensorScaleFactor)
	assert.Equal(t, 9.80665, cfg.Gravity)
	assert.Equal(t, 2.8e-6, cfg.DriftEpsilon)
	assert.False(t, cfg.MQTTEnabled)
	assert.Empty(t, cfg.SQLitePath)
}

func TestParse_AllKeys(t *testing.T) {
	in := `
# comment
INTEGRATION_POLICY = velocity-integrated
SENSOR_SCALE_FACTOR=0.5
GRAVITY=9.81
DRIFT_EPSILON=0
OUTPUT_SEPARATOR=comma
SQLITE_PATH=/var/lib/seismic.db
MQTT_ENABLED=true
MQTT_BROKER=tcp://broker:1883
MQTT_CLIENT_ID_ANALYZE=a
MQTT_CLIENT_ID_CONSOLE=c
MQTT_CLIENT_ID_WEB=w
TOPIC_DISPLACEMENT=site1/displacement
TOPIC_SUMMARY=site1/summary
WEB_SERVER_PORT=9090
`
	cfg, err := Parse(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, &Config{
		IntegrationPolicy:   integrate.PolicyVelocityIntegrated,
		SensorScaleFactor:   0.5,
		Gravity:             9.81,
		DriftEpsilon:        0,
		OutputSeparator:     "comma",
		SQLitePath:          "/var/lib/seismic.db",
		MQTTEnabled:         true,
		MQTTBroker:          "tcp://broker:1883",
		MQTTClientIDAnalyze: "a",
		MQTTClientIDConsole: "c",
		MQTTClientIDWeb:     "w",
		TopicDisplacement:   "site1/displacement",
		TopicSummary:        "site1/summary",
		WebServerPort:       9090,
	}, cfg)

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, integrate.VelocityIntegrated{}, p)

	f, err := cfg.Formatter()
	require.NoError(t, err)
	assert.Equal(t, ",", f.Separator)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no equals", "INTEGRATION_POLICY", "invalid config line 1"},
		{"unknown key", "COLOR=blue", "unknown config key"},
		{"bad float", "GRAVITY=heavy", "invalid GRAVITY"},
		{"bad bool", "MQTT_ENABLED=maybe", "invalid MQTT_ENABLED"},
		{"bad port", "WEB_SERVER_PORT=http", "invalid WEB_SERVER_PORT"},
		{"unknown policy", "INTEGRATION_POLICY=verlet", "INTEGRATION_POLICY"},
		{"unknown separator", "OUTPUT_SEPARATOR=tab", "OUTPUT_SEPARATOR"},
		{"zero scale", "SENSOR_SCALE_FACTOR=0", "SENSOR_SCALE_FACTOR must be > 0"},
		{"negative gravity", "GRAVITY=-9.8", "GRAVITY must be > 0"},
		{"negative epsilon", "DRIFT_EPSILON=-1", "DRIFT_EPSILON must be >= 0"},
		{"mqtt without broker", "MQTT_ENABLED=true\nMQTT_BROKER=", "MQTT_BROKER is required"},
		{"empty topic", "TOPIC_DISPLACEMENT=", "TOPIC_DISPLACEMENT is required"},
		{"port out of range", "WEB_SERVER_PORT=70000", "WEB_SERVER_PORT must be"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seismic_config.txt")
	require.NoError(t, os.WriteFile(path, []byte("OUTPUT_SEPARATOR=comma\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "comma", cfg.OutputSeparator)

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorContains(t, err, "failed to open config file")
}

func TestLoad_ShippedExample(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "seismic_config.txt"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
