//go:build unit

package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetBuildInfoCarriesLinkerValues(t *testing.T) {
	Version = "1.2.3"
	defer func() { Version = "unknown" }()

	info := GetBuildInfo()
	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, "unknown", info["commit"])
	assert.Contains(t, info, "build_timestamp")
}
