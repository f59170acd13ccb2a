package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"remote-diagnosis-server/internal/config"
	"remote-diagnosis-server/internal/llm"
	"remote-diagnosis-server/internal/logger"
	"remote-diagnosis-server/internal/models"
	"remote-diagnosis-server/internal/store"
)

// persistTimeout bounds the store insert after a successful generation.
const persistTimeout = 10 * time.Second

// Engine composes the diagnosis pipeline: normalize the input, build the
// prompt, generate, validate (repairing once if needed), persist. It is
// safe for concurrent use; the history store is the only shared state.
type Engine struct {
	client        llm.Client
	validator     *Validator
	store         store.HistoryStore
	log           *logger.Logger
	maxImageBytes int64
	provider      string
	model         string
}

// NewEngine wires the pipeline together. client should already carry the
// retry policy.
func NewEngine(client llm.Client, historyStore store.HistoryStore, cfg *config.Config, log *logger.Logger) *Engine {
	return &Engine{
		client:        client,
		validator:     NewValidator(client, log),
		store:         historyStore,
		log:           log,
		maxImageBytes: cfg.MaxImageBytes,
		provider:      cfg.Generation.Provider,
		model:         cfg.Generation.Model,
	}
}

// Diagnose runs one request through the full pipeline. Any stage failure
// short-circuits: nothing is persisted unless the model output passed
// validation, and a record is returned only when it was stored.
func (e *Engine) Diagnose(ctx context.Context, in DiagnoseInput) (*models.Diagnosis, error) {
	req, err := NormalizeRequest(in, e.maxImageBytes)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(req)
	raw, err := e.client.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, llm.ErrRefused) {
			return nil, fmt.Errorf("generate diagnosis: %w", err)
		}
		return nil, fmt.Errorf("generate diagnosis: %w: %w", ErrUnavailable, err)
	}

	report, err := e.validator.Validate(ctx, prompt, raw)
	if err != nil {
		return nil, err
	}

	record := &models.Diagnosis{
		Symptoms:            req.Symptoms,
		PatientAge:          req.PatientAge,
		PatientGender:       req.PatientGender,
		Location:            req.Location,
		Diagnosis:           report.Diagnosis,
		Medicines:           report.Medicines,
		MedicineTiming:      report.MedicineTiming,
		DietRecommendations: report.DietRecommendations,
		NearbyPharmacies:    report.NearbyPharmacies,
		RecommendedDoctors:  report.RecommendedDoctors,
		Disclaimer:          report.Disclaimer,
		Provider:            e.provider,
		Model:               e.model,
	}

	// The generation work is already paid for, so persist on a detached
	// context even if the caller has given up waiting.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := e.store.Append(persistCtx, record); err != nil {
		e.log.Error("diagnosis produced but not persisted", "error", err.Error())
		return nil, fmt.Errorf("persist diagnosis: %w", err)
	}

	e.log.Info("diagnosis stored",
		"id", record.ID,
		"provider", e.provider,
		"model", e.model,
	)
	return record, nil
}

// History lists stored diagnoses, most recent first.
func (e *Engine) History(ctx context.Context, limit int) ([]models.Diagnosis, error) {
	return e.store.List(ctx, limit)
}

// HistoryByID fetches a single stored diagnosis.
func (e *Engine) HistoryByID(ctx context.Context, id string) (*models.Diagnosis, error) {
	return e.store.Get(ctx, id)
}
