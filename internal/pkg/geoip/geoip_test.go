package geoip_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"sitepulse/internal/pkg/geoip"
)

func TestOpenMissingDatabaseDisablesLookups(t *testing.T) {
	r := geoip.Open(filepath.Join(t.TempDir(), "missing.mmdb"), nil)
	assert.Nil(t, r)

	loc, ok := r.Lookup("8.8.8.8")
	assert.False(t, ok)
	assert.Equal(t, geoip.Location{}, loc)
	assert.NoError(t, r.Close())
}

func TestOpenEmptyPath(t *testing.T) {
	assert.Nil(t, geoip.Open("", nil))
}
