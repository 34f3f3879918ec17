package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessellary/casework-api/internal/domain"
	"github.com/tessellary/casework-api/internal/store"
)

func TestExpectedTotalReturnsTranscriptCount(t *testing.T) {
	requests := newMockRequestStore()
	req, err := domain.NewAnalysisRequest("caller-1", "case-001")
	require.NoError(t, err)
	req.TranscriptCount = 7
	require.NoError(t, requests.Create(context.Background(), req))

	source, err := NewStoreExpectedSource(requests)
	require.NoError(t, err)

	total, err := source.ExpectedTotal(context.Background(), req.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
}

func TestExpectedTotalInvalidID(t *testing.T) {
	source, err := NewStoreExpectedSource(newMockRequestStore())
	require.NoError(t, err)

	_, err = source.ExpectedTotal(context.Background(), "not-a-uuid")
	assert.Error(t, err)
}

func TestExpectedTotalUnknownRequest(t *testing.T) {
	source, err := NewStoreExpectedSource(newMockRequestStore())
	require.NoError(t, err)

	_, err = source.ExpectedTotal(context.Background(), "b3a6f5f0-0000-4000-8000-000000000001")
	assert.ErrorIs(t, err, store.ErrRequestNotFound)
}

func TestNewStoreExpectedSourceNilStore(t *testing.T) {
	_, err := NewStoreExpectedSource(nil)
	assert.ErrorIs(t, err, ErrNilRequestStore)
}
