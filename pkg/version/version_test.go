package version_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/clausefang/pkg/version"
)

func TestString(t *testing.T) {
	t.Parallel()

	banner := version.String()

	assert.True(t, strings.HasPrefix(banner, "clausefang "+version.Version))
	assert.Contains(t, banner, "commit: "+version.Commit)
	assert.Contains(t, banner, "built: "+version.Date)
}
