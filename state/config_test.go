package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meshwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultJournalUnit, cfg.Unit)
	assert.Empty(t, cfg.Device)
	assert.Equal(t, SerialBaudRate, cfg.Baud)
	assert.Equal(t, DefaultDatabase, cfg.Database)
	assert.Equal(t, DefaultReportDir, cfg.ReportDir)
	require.NotNil(t, cfg.HourlyMinute)
	assert.Equal(t, DefaultHourlyMin, *cfg.HourlyMinute)
	assert.Equal(t, DefaultDailyTimes, cfg.DailyAt)
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
device: /dev/ttyUSB0
baud: 921600
database: /var/lib/meshwatch/net.sqlite3
report_dir: /srv/www/mesh
hourly_minute: 30
daily_at:
  - "06:00"
timezone: UTC
`))
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", cfg.Device)
	assert.Equal(t, 921600, cfg.Baud)
	assert.Equal(t, "/var/lib/meshwatch/net.sqlite3", cfg.Database)
	assert.Equal(t, "/srv/www/mesh", cfg.ReportDir)
	assert.Equal(t, 30, *cfg.HourlyMinute)
	assert.Equal(t, []string{"06:00"}, cfg.DailyAt)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestConfigValidatorRejectsBadValues(t *testing.T) {
	bad := []string{
		"baud: -1\n",
		"hourly_minute: 60\n",
		"daily_at: [\"25:00\"]\n",
		"daily_at: [\"noon\"]\n",
		"timezone: Nowhere/Nowhere\n",
	}
	for _, body := range bad {
		_, err := LoadConfig(writeConfig(t, body))
		assert.Error(t, err, "config %q", body)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("23:59")
	require.NoError(t, err)
	assert.Equal(t, 23, h)
	assert.Equal(t, 59, m)

	_, _, err = ParseClock("24:00")
	assert.Error(t, err)
}
