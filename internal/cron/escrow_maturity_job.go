package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/arooba/marketplace-backend/internal/wallet"
	"github.com/arooba/marketplace-backend/pkg/logger"
)

const defaultEscrowBatchSize = 200

type escrowSweeper interface {
	SweepMatured(ctx context.Context, now time.Time, limit int) (wallet.SweepResult, error)
}

// EscrowMaturityJobParams configure the escrow maturity sweep.
type EscrowMaturityJobParams struct {
	Logger    *logger.Logger
	Sweeper   escrowSweeper
	BatchSize int
}

// NewEscrowMaturityJob builds the job that flags shipments whose hold period has elapsed.
func NewEscrowMaturityJob(params EscrowMaturityJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("escrow sweeper required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultEscrowBatchSize
	}
	return &escrowMaturityJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type escrowMaturityJob struct {
	logg    *logger.Logger
	sweeper escrowSweeper
	batch   int
	now     func() time.Time
}

func (j *escrowMaturityJob) Name() string { return "escrow-maturity" }

func (j *escrowMaturityJob) Run(ctx context.Context) error {
	result, err := j.sweeper.SweepMatured(ctx, j.now().UTC(), j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"batch_size": j.batch,
		"matured":    result.Matured,
		"failed":     result.Failed,
	})
	if err != nil {
		return fmt.Errorf("escrow maturity: %w", err)
	}
	j.logg.Info(logCtx, "escrow maturity sweep complete")
	return nil
}
