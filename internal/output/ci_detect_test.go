package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCI_EnvVar(t *testing.T) {
	t.Setenv("TIMELINE_CI_MODE", "1")

	assert.True(t, IsCI())
	assert.False(t, IsInteractive())
}

func TestIsInteractiveWriter_NonFile(t *testing.T) {
	for _, envVar := range ciEnvVars {
		t.Setenv(envVar, "")
	}

	assert.False(t, IsInteractiveWriter(&bytes.Buffer{}))
	assert.False(t, IsInteractiveWriter(nil))
}
