package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"remote-diagnosis-server/internal/config"
	"remote-diagnosis-server/internal/diagnosis"
	"remote-diagnosis-server/internal/llm"
	"remote-diagnosis-server/internal/logger"
	"remote-diagnosis-server/internal/models"
	"remote-diagnosis-server/internal/store"
	"remote-diagnosis-server/internal/utils"
)

// DiagnosisService is the part of the orchestration engine the HTTP layer
// needs. Tests substitute a stub.
type DiagnosisService interface {
	Diagnose(ctx context.Context, in diagnosis.DiagnoseInput) (*models.Diagnosis, error)
	History(ctx context.Context, limit int) ([]models.Diagnosis, error)
	HistoryByID(ctx context.Context, id string) (*models.Diagnosis, error)
}

// DiagnosisHandler handles diagnosis related requests.
type DiagnosisHandler struct {
	Service      DiagnosisService
	HistoryLimit int
	Log          *logger.Logger
}

// NewDiagnosisHandler creates a new DiagnosisHandler.
func NewDiagnosisHandler(service DiagnosisService, cfg *config.Config, log *logger.Logger) *DiagnosisHandler {
	return &DiagnosisHandler{Service: service, HistoryLimit: cfg.HistoryLimit, Log: log}
}

// Diagnose handles creating a new diagnosis from reported symptoms and an
// optional medical image.
func (h *DiagnosisHandler) Diagnose(c *gin.Context) {
	var req diagnosis.DiagnoseInput
	if !utils.BindAndValidate(c, &req) {
		return
	}

	record, err := h.Service.Diagnose(c.Request.Context(), req)
	if err != nil {
		h.respondDiagnoseError(c, err)
		return
	}
	utils.Success(c, "Diagnosis created successfully", record)
}

// respondDiagnoseError maps pipeline errors onto distinct HTTP responses.
// A storage failure after a successful generation must read differently
// from a failed generation.
func (h *DiagnosisHandler) respondDiagnoseError(c *gin.Context, err error) {
	var validationErr *diagnosis.ValidationError
	switch {
	case errors.As(err, &validationErr):
		utils.BadRequest(c, validationErr.Error())
	case errors.Is(err, llm.ErrRefused):
		h.Log.Warn("diagnosis refused by provider", "error", err.Error())
		utils.BadGateway(c, "The medical assistant declined this request. Please rephrase your symptoms and try again.")
	case errors.Is(err, store.ErrStorage):
		h.Log.Error("diagnosis succeeded but was not saved", "error", err.Error())
		utils.Error(c, http.StatusInternalServerError, "A diagnosis was produced but could not be saved. Please try again.")
	case errors.Is(err, diagnosis.ErrUnavailable):
		h.Log.Error("diagnosis unavailable", "error", err.Error())
		utils.ServiceUnavailable(c, "Unable to produce a diagnosis right now. Please try again later.")
	default:
		h.Log.Error("diagnosis failed", "error", err.Error())
		utils.InternalServerError(c, "Failed to create diagnosis")
	}
}

// GetHistory handles fetching past diagnoses, most recent first.
func (h *DiagnosisHandler) GetHistory(c *gin.Context) {
	limit := h.HistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			utils.BadRequest(c, "limit must be a positive integer")
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	records, err := h.Service.History(c.Request.Context(), limit)
	if err != nil {
		h.Log.Error("history listing failed", "error", err.Error())
		utils.InternalServerError(c, "Failed to fetch diagnosis history")
		return
	}
	utils.Success(c, "Diagnosis history fetched successfully", records)
}

// GetHistoryByID handles fetching a single stored diagnosis.
func (h *DiagnosisHandler) GetHistoryByID(c *gin.Context) {
	id := c.Param("id")
	record, err := h.Service.HistoryByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.NotFound(c, "Diagnosis not found")
			return
		}
		h.Log.Error("history lookup failed", "id", id, "error", err.Error())
		utils.InternalServerError(c, "Failed to fetch diagnosis")
		return
	}
	utils.Success(c, "Diagnosis fetched successfully", record)
}
