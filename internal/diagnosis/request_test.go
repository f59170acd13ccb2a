package diagnosis

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRequestTrimsFields(t *testing.T) {
	req, err := NormalizeRequest(DiagnoseInput{
		Symptoms:      "  fever and cough  ",
		PatientGender: " male ",
		Location:      " Berlin ",
	}, 0)

	require.NoError(t, err)
	assert.Equal(t, "fever and cough", req.Symptoms)
	assert.Equal(t, "male", req.PatientGender)
	assert.Equal(t, "Berlin", req.Location)
	assert.Nil(t, req.Image)
}

func TestNormalizeRequestRejectsEmptySymptoms(t *testing.T) {
	for _, symptoms := range []string{"", "   ", "\n\t"} {
		_, err := NormalizeRequest(DiagnoseInput{Symptoms: symptoms}, 0)

		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "symptoms", validationErr.Field)
	}
}

func TestNormalizeRequestRejectsBadAge(t *testing.T) {
	for _, age := range []int{-1, 131} {
		_, err := NormalizeRequest(DiagnoseInput{Symptoms: "fever", PatientAge: intPtr(age)}, 0)

		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "patient_age", validationErr.Field)
	}
}

func TestNormalizeRequestDecodesImage(t *testing.T) {
	payload := []byte("fake jpeg bytes")
	req, err := NormalizeRequest(DiagnoseInput{
		Symptoms:    "rash",
		ImageBase64: base64.StdEncoding.EncodeToString(payload),
	}, 1<<20)

	require.NoError(t, err)
	require.NotNil(t, req.Image)
	assert.Equal(t, "image/jpeg", req.Image.MediaType)
	assert.Equal(t, payload, req.Image.Data)
}

func TestNormalizeRequestStripsDataURIPrefix(t *testing.T) {
	payload := []byte("fake png bytes")
	encoded := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)

	req, err := NormalizeRequest(DiagnoseInput{Symptoms: "rash", ImageBase64: encoded}, 1<<20)

	require.NoError(t, err)
	require.NotNil(t, req.Image)
	assert.Equal(t, "image/png", req.Image.MediaType)
	assert.Equal(t, payload, req.Image.Data)
}

func TestNormalizeRequestRejectsOversizeImage(t *testing.T) {
	big := strings.Repeat("A", 64)
	_, err := NormalizeRequest(DiagnoseInput{Symptoms: "rash", ImageBase64: big}, 16)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "image", validationErr.Field)
	assert.Contains(t, validationErr.Reason, "limit")
}

func TestNormalizeRequestRejectsNonImageMediaType(t *testing.T) {
	_, err := NormalizeRequest(DiagnoseInput{
		Symptoms:       "rash",
		ImageBase64:    base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")),
		ImageMediaType: "application/pdf",
	}, 1<<20)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "image", validationErr.Field)
}

func TestNormalizeRequestRejectsBadBase64(t *testing.T) {
	_, err := NormalizeRequest(DiagnoseInput{Symptoms: "rash", ImageBase64: "@@not base64@@"}, 1<<20)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "image", validationErr.Field)
}
