package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, HealthHealthy, Classify(true, true))
	assert.Equal(t, HealthDegraded, Classify(true, false))
	assert.Equal(t, HealthDown, Classify(false, true))
	assert.Equal(t, HealthDown, Classify(false, false))
}

func TestHealthReport_Crashed(t *testing.T) {
	assert.True(t, HealthReport{Exists: true, ExitCode: 137}.Crashed())
	assert.False(t, HealthReport{Exists: true, ExitCode: 0}.Crashed())
	assert.False(t, HealthReport{Exists: true, Running: true, ExitCode: 1}.Crashed())
	assert.False(t, HealthReport{}.Crashed())
}
