package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
[database]
host = "localhost"
dbname = "courts"

[directory]
url = "http://directory:8080"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "Asia/Manila", cfg.Booking.Timezone)
	assert.Equal(t, 60, cfg.Booking.SlotIntervalMinutes)
	assert.Equal(t, 60, cfg.Booking.LeadTimeMinutes)
	assert.Equal(t, CancellationPolicyAllow, cfg.Booking.CancellationPolicy)
	assert.Equal(t, "*/5 * * * *", cfg.Reconciliation.Cron)
	assert.Equal(t, "court-reservations", cfg.Notifications.Channel)
	assert.NotEmpty(t, cfg.PayPal.CertAllowedHosts)

	loc, err := cfg.Booking.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Manila", loc.String())
}

func TestLoad_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("PAYPAL_CLIENT_SECRET", "from-env")
	t.Setenv("DB_PASSWORD", "s3cret")

	path := writeConfig(t, `
[database]
host = "db"
dbname = "courts"
password = "from-file"

[directory]
url = "http://directory"

[paypal]
client_secret = "from-file"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.PayPal.ClientSecret)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Contains(t, cfg.Database.DSN(), "password=s3cret")
}

func TestLoad_InvalidPolicyAndTimezone(t *testing.T) {
	path := writeConfig(t, `
[database]
host = "db"
dbname = "courts"

[directory]
url = "http://directory"

[booking]
timezone = "Mars/Olympus"
cancellation_policy = "refund"
`)

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "booking.timezone")
	assert.Contains(t, err.Error(), "booking.cancellation_policy")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}
