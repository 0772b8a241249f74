package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupFileName_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	name := BackupFileName("ccf-node", ts)
	assert.Equal(t, "ccf-node-backup-20260304-050607.tar.gz", name)

	parsed, err := ParseBackupFileName("ccf-node", name)
	require.NoError(t, err)
	assert.True(t, ts.Equal(parsed))
}

func TestBackupFileName_UsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2026, 3, 4, 7, 0, 0, 0, loc)

	assert.Equal(t, "n-backup-20260304-050000.tar.gz", BackupFileName("n", ts))
}

func TestParseBackupFileName_Rejects(t *testing.T) {
	_, err := ParseBackupFileName("ccf-node", "other-backup-20260304-050607.tar.gz")
	assert.Error(t, err)

	_, err = ParseBackupFileName("ccf-node", "ccf-node-backup-garbage.tar.gz")
	assert.Error(t, err)
}
