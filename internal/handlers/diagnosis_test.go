package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remote-diagnosis-server/internal/diagnosis"
	"remote-diagnosis-server/internal/llm"
	"remote-diagnosis-server/internal/logger"
	"remote-diagnosis-server/internal/models"
	"remote-diagnosis-server/internal/store"
	"remote-diagnosis-server/internal/utils"
)

// stubService scripts the engine behavior for handler tests.
type stubService struct {
	diagnoseRecord *models.Diagnosis
	diagnoseErr    error
	historyRecords []models.Diagnosis
	historyErr     error
	gotLimit       int
	getRecord      *models.Diagnosis
	getErr         error
}

var _ DiagnosisService = (*stubService)(nil)

func (s *stubService) Diagnose(ctx context.Context, in diagnosis.DiagnoseInput) (*models.Diagnosis, error) {
	return s.diagnoseRecord, s.diagnoseErr
}

func (s *stubService) History(ctx context.Context, limit int) ([]models.Diagnosis, error) {
	s.gotLimit = limit
	return s.historyRecords, s.historyErr
}

func (s *stubService) HistoryByID(ctx context.Context, id string) (*models.Diagnosis, error) {
	return s.getRecord, s.getErr
}

func newTestRouter(service DiagnosisService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &DiagnosisHandler{Service: service, HistoryLimit: 100, Log: logger.NewNop()}
	router := gin.New()
	api := router.Group("/api")
	api.POST("/diagnose", h.Diagnose)
	api.GET("/history", h.GetHistory)
	api.GET("/history/:id", h.GetHistoryByID)
	return router
}

func postDiagnose(t *testing.T, router *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/diagnose", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sampleRecord() *models.Diagnosis {
	return &models.Diagnosis{
		BaseModel: models.BaseModel{
			ID:        "11111111-2222-3333-4444-555555555555",
			CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		Symptoms:            "fever and cough",
		Diagnosis:           "Common cold",
		Medicines:           []string{"Paracetamol - 500mg"},
		MedicineTiming:      "Twice daily after meals",
		DietRecommendations: []string{"Warm fluids"},
		NearbyPharmacies:    []string{"Local pharmacies"},
		RecommendedDoctors:  []string{"General Practitioner"},
		Disclaimer:          "Consult a qualified healthcare professional.",
	}
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) utils.ResponseData {
	t.Helper()
	var body utils.ResponseData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestDiagnoseSuccess(t *testing.T) {
	service := &stubService{diagnoseRecord: sampleRecord()}
	router := newTestRouter(service)

	w := postDiagnose(t, router, gin.H{"symptoms": "fever and cough", "patient_age": 30, "patient_gender": "male"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Common cold")
	assert.Contains(t, w.Body.String(), "11111111-2222-3333-4444-555555555555")
}

func TestDiagnoseMissingSymptomsFailsBinding(t *testing.T) {
	router := newTestRouter(&stubService{})

	w := postDiagnose(t, router, gin.H{"patient_age": 30})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDiagnoseValidationErrorMapsTo400(t *testing.T) {
	service := &stubService{diagnoseErr: &diagnosis.ValidationError{Field: "symptoms", Reason: "must not be empty"}}
	router := newTestRouter(service)

	w := postDiagnose(t, router, gin.H{"symptoms": "   "})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeResponse(t, w)
	assert.Contains(t, body.Error, "symptoms")
}

func TestDiagnoseRefusalMapsTo502(t *testing.T) {
	service := &stubService{diagnoseErr: fmt.Errorf("generate diagnosis: %w", &llm.RefusalError{Reason: "safety"})}
	router := newTestRouter(service)

	w := postDiagnose(t, router, gin.H{"symptoms": "fever"})

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestDiagnoseUnavailableMapsTo503(t *testing.T) {
	service := &stubService{diagnoseErr: fmt.Errorf("generate diagnosis: %w: last error", diagnosis.ErrUnavailable)}
	router := newTestRouter(service)

	w := postDiagnose(t, router, gin.H{"symptoms": "fever"})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDiagnoseStorageFailureMapsTo500WithDistinctMessage(t *testing.T) {
	service := &stubService{diagnoseErr: fmt.Errorf("persist diagnosis: %w", store.ErrStorage)}
	router := newTestRouter(service)

	w := postDiagnose(t, router, gin.H{"symptoms": "fever"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeResponse(t, w)
	assert.Contains(t, body.Error, "could not be saved")
}

func TestGetHistory(t *testing.T) {
	service := &stubService{historyRecords: []models.Diagnosis{*sampleRecord()}}
	router := newTestRouter(service)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, service.gotLimit)
	assert.Contains(t, w.Body.String(), "Common cold")
}

func TestGetHistoryClampsLimit(t *testing.T) {
	service := &stubService{}
	router := newTestRouter(service)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history?limit=5", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, service.gotLimit)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history?limit=10000", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, service.gotLimit)
}

func TestGetHistoryRejectsBadLimit(t *testing.T) {
	router := newTestRouter(&stubService{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history?limit=abc", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetHistoryStorageErrorMapsTo500(t *testing.T) {
	service := &stubService{historyErr: store.ErrStorage}
	router := newTestRouter(service)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetHistoryByID(t *testing.T) {
	service := &stubService{getRecord: sampleRecord()}
	router := newTestRouter(service)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history/11111111-2222-3333-4444-555555555555", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Common cold")
}

func TestGetHistoryByIDNotFound(t *testing.T) {
	service := &stubService{getErr: store.ErrNotFound}
	router := newTestRouter(service)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
