package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/arooba/marketplace-backend/internal/dashboard"
	"github.com/arooba/marketplace-backend/pkg/config"
	"github.com/arooba/marketplace-backend/pkg/logger"
	"github.com/arooba/marketplace-backend/pkg/pubsub"
	"github.com/arooba/marketplace-backend/pkg/redis"
)

type ServiceParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	Redis     redis.Pinger
	PubSub    *pubsub.Client
	Dashboard *dashboard.Consumer
}

// Service runs the domain event consumers.
type Service struct {
	cfg       *config.Config
	logg      *logger.Logger
	redis     redis.Pinger
	pubsub    *pubsub.Client
	dashboard *dashboard.Consumer
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.Dashboard == nil {
		return nil, errors.New("dashboard consumer is required")
	}
	return &Service{
		cfg:       params.Config,
		logg:      params.Logger,
		redis:     params.Redis,
		pubsub:    params.PubSub,
		dashboard: params.Dashboard,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "pubsub", s.pubsub.Ping); err != nil {
		return err
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.dashboard.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		s.logg.Info(ctx, "worker context canceled")
		return ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logg.Error(ctx, "consumer stopped unexpectedly", err)
		}
		return err
	}
}
