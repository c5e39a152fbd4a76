package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepJSON_DurationInSeconds(t *testing.T) {
	step := &Step{
		Name:              "Install",
		Kind:              StepInstall,
		Run:               "npm ci",
		EstimatedDuration: 90 * time.Second,
	}

	data, err := json.Marshal(step)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"estimated_duration_secs":90`)
	assert.NotContains(t, string(data), "90000000000", "durations must not leak as nanoseconds")

	var back Step
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 90*time.Second, back.EstimatedDuration)
	assert.Equal(t, StepInstall, back.Kind)
	assert.Equal(t, "npm ci", back.Run)
}

func TestStepJSON_FractionalSeconds(t *testing.T) {
	step := &Step{Kind: StepRun, EstimatedDuration: 1500 * time.Millisecond}

	data, err := json.Marshal(step)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"estimated_duration_secs":1.5`)

	var back Step
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 1500*time.Millisecond, back.EstimatedDuration)
}
