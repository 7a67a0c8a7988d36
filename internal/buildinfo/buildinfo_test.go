package buildinfo

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintBuildData(t *testing.T) {
	oldV, oldC := Version, Commit
	t.Cleanup(func() { Version, Commit = oldV, oldC })
	Version, Commit = "1.2.3", "abc"

	var buf bytes.Buffer
	PrintBuildData(&buf)

	assert.Equal(t, "xcauth 1.2.3 (commit abc, built N/A)\n", buf.String())
}
