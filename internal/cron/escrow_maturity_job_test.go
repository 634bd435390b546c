package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arooba/marketplace-backend/internal/wallet"
	"github.com/arooba/marketplace-backend/pkg/logger"
)

type fakeSweeper struct {
	calls  int
	now    time.Time
	limit  int
	result wallet.SweepResult
	err    error
}

func (f *fakeSweeper) SweepMatured(_ context.Context, now time.Time, limit int) (wallet.SweepResult, error) {
	f.calls++
	f.now = now
	f.limit = limit
	return f.result, f.err
}

func newEscrowJob(t *testing.T, sweeper *fakeSweeper, batch int) *escrowMaturityJob {
	t.Helper()
	job, err := NewEscrowMaturityJob(EscrowMaturityJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Sweeper:   sweeper,
		BatchSize: batch,
	})
	require.NoError(t, err)
	concrete, ok := job.(*escrowMaturityJob)
	require.True(t, ok)
	return concrete
}

func TestEscrowMaturityJobSweepsWithDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("EET", 2*3600))
	sweeper := &fakeSweeper{result: wallet.SweepResult{Matured: 3}}
	job := newEscrowJob(t, sweeper, 0)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 1, sweeper.calls)
	require.Equal(t, defaultEscrowBatchSize, sweeper.limit)
	require.Equal(t, time.UTC, sweeper.now.Location())
	require.True(t, sweeper.now.Equal(now))
	require.Equal(t, "escrow-maturity", job.Name())
}

func TestEscrowMaturityJobPropagatesPartialFailure(t *testing.T) {
	sweeper := &fakeSweeper{
		result: wallet.SweepResult{Matured: 1, Failed: 1},
		err:    errors.New("shipment lock timeout"),
	}
	job := newEscrowJob(t, sweeper, 10)

	err := job.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "shipment lock timeout")
	require.Equal(t, 10, sweeper.limit)
}

func TestNewEscrowMaturityJobRequiresDependencies(t *testing.T) {
	_, err := NewEscrowMaturityJob(EscrowMaturityJobParams{Sweeper: &fakeSweeper{}})
	require.Error(t, err)
	_, err = NewEscrowMaturityJob(EscrowMaturityJobParams{Logger: logger.New(logger.Options{ServiceName: "test"})})
	require.Error(t, err)
}
