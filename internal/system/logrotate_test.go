package system

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const logrotateSample = `/var/log/syslog
{
	rotate 4
	weekly
	missingok
	notifempty
	compress
}
`

func writeLogrotate(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rsyslog")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestUpdateLogrotateConfFrequency(t *testing.T) {
	path := writeLogrotate(t, logrotateSample)

	got, err := UpdateLogrotateConf(path, "daily", 0, true)
	require.NoError(t, err)
	assert.Equal(t, `/var/log/syslog
{
	rotate 4
	daily
	missingok
	notifempty
	compress
}
`, got)
}

func TestUpdateLogrotateConfRetention(t *testing.T) {
	path := writeLogrotate(t, logrotateSample)

	got, err := UpdateLogrotateConf(path, "", 30, true)
	require.NoError(t, err)
	assert.Equal(t, `/var/log/syslog
{
	dateext
	rotate 30
	weekly
	missingok
	notifempty
	compress
}
`, got)
}

func TestUpdateLogrotateConfRetentionNoDateext(t *testing.T) {
	path := writeLogrotate(t, logrotateSample)

	got, err := UpdateLogrotateConf(path, "", 30, false)
	require.NoError(t, err)
	assert.Equal(t, `/var/log/syslog
{
	rotate 30
	weekly
	missingok
	notifempty
	compress
}
`, got)
}

func TestUpdateLogrotateConfDropsExistingDateext(t *testing.T) {
	path := writeLogrotate(t, `/var/log/syslog
{
	dateext
	rotate 4
	daily
}
`)

	got, err := UpdateLogrotateConf(path, "", 120, true)
	require.NoError(t, err)
	assert.Equal(t, `/var/log/syslog
{
	dateext
	rotate 120
	daily
}
`, got)
}

func TestUpdateLogrotateConfMissingFile(t *testing.T) {
	got, err := UpdateLogrotateConf(filepath.Join(t.TempDir(), "absent"), "daily", 0, true)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpdateLogrotateConfFrequencyAndRetention(t *testing.T) {
	path := writeLogrotate(t, logrotateSample)

	got, err := UpdateLogrotateConf(path, "daily", 120, true)
	require.NoError(t, err)
	assert.Equal(t, `/var/log/syslog
{
	dateext
	rotate 120
	daily
	missingok
	notifempty
	compress
}
`, got)
}
