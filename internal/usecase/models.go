package usecase

import (
	"context"
	"fmt"

	domsvc "QuantSig/internal/domain/service"
	enginemetrics "QuantSig/internal/service/metrics"
	"QuantSig/pkg/queue"

	applogger "QuantSig/pkg/logger"
)

const retrainMsgType = "model.retrain"

// ModelUseCase fronts the predictive model store: info queries, forced
// retrains, and the daily retrain batch dispatched over the Redis queue.
type ModelUseCase struct {
	store    domsvc.ModelStore
	jobs     queue.QueueService
	universe []string
	l        *applogger.Logger
}

func NewModelUseCase(store domsvc.ModelStore, jobs queue.QueueService, universe []string, l *applogger.Logger) *ModelUseCase {
	return &ModelUseCase{store: store, jobs: jobs, universe: universe, l: l}
}

func (uc *ModelUseCase) GetModelInfo(ctx context.Context, symbol string) (domsvc.ModelInfo, error) {
	if symbol == "" {
		return domsvc.ModelInfo{}, fmt.Errorf("symbol required")
	}
	return uc.store.Info(symbol), nil
}

// ForceRetrain synchronously refits the model for one symbol.
func (uc *ModelUseCase) ForceRetrain(ctx context.Context, symbol string) (*domsvc.ValidationMetrics, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	v, err := uc.store.Retrain(ctx, symbol)
	if err != nil {
		enginemetrics.ModelTrainings.WithLabelValues("error").Inc()
		return nil, err
	}
	enginemetrics.ModelTrainings.WithLabelValues("ok").Inc()
	return v, nil
}

// EnqueueRetrains publishes one retrain job per known symbol onto the work
// queue. The configured universe seeds the set; symbols learned via lazy
// warm-up are included too.
func (uc *ModelUseCase) EnqueueRetrains(ctx context.Context) (int, error) {
	symbols := map[string]struct{}{}
	for _, s := range uc.universe {
		symbols[s] = struct{}{}
	}
	for _, s := range uc.store.Symbols() {
		symbols[s] = struct{}{}
	}

	// Without a queue the batch trains inline.
	if uc.jobs == nil {
		trained := 0
		for s := range symbols {
			if _, err := uc.ForceRetrain(ctx, s); err != nil {
				uc.l.Warn("retrain failed", applogger.String("symbol", s), applogger.Error(err))
				continue
			}
			trained++
		}
		uc.l.Info("retrain batch done inline", applogger.Int("symbols", trained))
		return trained, nil
	}

	queued := 0
	for s := range symbols {
		if err := uc.jobs.PublishMessage(ctx, retrainMsgType, RetrainPayload{Symbol: s}); err != nil {
			uc.l.Error("enqueue retrain", applogger.String("symbol", s), applogger.Error(err))
			continue
		}
		queued++
	}
	uc.l.Info("retrain batch enqueued", applogger.Int("symbols", queued))
	return queued, nil
}

// RetrainPayload is the queue message body for one retrain job.
type RetrainPayload struct {
	Symbol string `json:"symbol"`
}

// RetrainJob consumes retrain messages off the Redis queue. Failures bubble
// up so the queue applies its retry-then-dead-letter policy.
type RetrainJob struct {
	models *ModelUseCase
}

func NewRetrainJob(models *ModelUseCase) *RetrainJob {
	return &RetrainJob{models: models}
}

func (j *RetrainJob) Name() string { return "model-retrain" }
func (j *RetrainJob) Type() string { return retrainMsgType }

func (j *RetrainJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[RetrainPayload](payload)
	if err != nil {
		return fmt.Errorf("parse retrain payload: %w", err)
	}
	if _, err := j.models.ForceRetrain(ctx, p.Symbol); err != nil {
		return fmt.Errorf("retrain %s: %w", p.Symbol, err)
	}
	return nil
}

var _ queue.Job = (*RetrainJob)(nil)
