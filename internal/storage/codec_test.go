package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCodecPreservesFields(t *testing.T) {
	run := sampleRun("r1", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	run.BestFitness = -1.5
	run.BestFingerprint = "0123456789abcdef"

	data, err := EncodeRun(run)
	require.NoError(t, err)
	decoded, err := DecodeRun(data)
	require.NoError(t, err)
	assert.Equal(t, run.ID, decoded.ID)
	assert.Equal(t, run.BestFitness, decoded.BestFitness)
	assert.Equal(t, run.BestFingerprint, decoded.BestFingerprint)
	assert.True(t, decoded.FinishedAt.IsZero(), "expected zero finish time, got %v", decoded.FinishedAt)
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	_, err := DecodeRun([]byte(`{"schema_version":2,"codec_version":1,"id":"r"}`))
	require.ErrorIs(t, err, ErrVersionMismatch)
	_, err = DecodeGeneration([]byte(`{"schema_version":1,"codec_version":9,"run_id":"r"}`))
	require.ErrorIs(t, err, ErrVersionMismatch)
}

func TestDecodeRejectsMalformedPayload(t *testing.T) {
	_, err := DecodeGeneration([]byte(`{`))
	require.Error(t, err)
}
