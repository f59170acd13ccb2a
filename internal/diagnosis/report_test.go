package diagnosis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validReportJSON = `{
	"diagnosis": "Common cold with mild bronchitis",
	"medicines": ["Paracetamol - 500mg", "Dextromethorphan - 20mg"],
	"medicine_timing": "Paracetamol: twice daily after meals. Dextromethorphan: once at bedtime.",
	"diet_recommendations": ["Warm fluids", "Vitamin C rich fruits"],
	"nearby_pharmacies": ["CVS Pharmacy", "Local independent pharmacies"],
	"recommended_doctors": ["General Practitioner", "Pulmonologist"],
	"disclaimer": "This is a preliminary AI-assisted diagnosis. Please consult a qualified healthcare professional for proper medical examination and treatment."
}`

func TestDecodeReportPlainJSON(t *testing.T) {
	report, problems := decodeReport(validReportJSON)

	require.Empty(t, problems)
	require.NotNil(t, report)
	assert.Equal(t, "Common cold with mild bronchitis", report.Diagnosis)
	assert.Equal(t, []string{"Paracetamol - 500mg", "Dextromethorphan - 20mg"}, report.Medicines)
	assert.Len(t, report.DietRecommendations, 2)
	assert.Len(t, report.NearbyPharmacies, 2)
	assert.Len(t, report.RecommendedDoctors, 2)
	assert.NotEmpty(t, report.Disclaimer)
}

func TestDecodeReportStripsJSONFences(t *testing.T) {
	fenced := "```json\n" + validReportJSON + "\n```"

	report, problems := decodeReport(fenced)

	require.Empty(t, problems)
	assert.Equal(t, "Common cold with mild bronchitis", report.Diagnosis)
}

func TestDecodeReportStripsBareFences(t *testing.T) {
	fenced := "```\n" + validReportJSON + "\n```"

	report, problems := decodeReport(fenced)

	require.Empty(t, problems)
	require.NotNil(t, report)
}

func TestDecodeReportIgnoresSurroundingProse(t *testing.T) {
	wrapped := "Here is my assessment:\n" + validReportJSON + "\nLet me know if you need anything else."

	report, problems := decodeReport(wrapped)

	require.Empty(t, problems)
	require.NotNil(t, report)
}

func TestDecodeReportMissingListField(t *testing.T) {
	raw := strings.Replace(validReportJSON, `"medicines": ["Paracetamol - 500mg", "Dextromethorphan - 20mg"],`, "", 1)

	report, problems := decodeReport(raw)

	assert.Nil(t, report)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "medicines")
}

func TestDecodeReportListRenderedAsString(t *testing.T) {
	raw := strings.Replace(validReportJSON,
		`"medicines": ["Paracetamol - 500mg", "Dextromethorphan - 20mg"]`,
		`"medicines": "Paracetamol - 500mg"`, 1)

	report, problems := decodeReport(raw)

	assert.Nil(t, report)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "got a single string")
}

func TestDecodeReportEmptyDiagnosis(t *testing.T) {
	raw := strings.Replace(validReportJSON, `"Common cold with mild bronchitis"`, `"  "`, 1)

	_, problems := decodeReport(raw)

	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "diagnosis")
}

func TestDecodeReportCollectsAllProblems(t *testing.T) {
	raw := `{"diagnosis": "flu"}`

	_, problems := decodeReport(raw)

	// Five of the six required fields are missing; the disclaimer is
	// enforced later and never counts as a problem.
	assert.Len(t, problems, 5)
}

func TestDecodeReportNotJSON(t *testing.T) {
	_, problems := decodeReport("I'm sorry, I can only speak in prose today.")

	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "not a JSON object")
}

func TestDecodeReportMissingDisclaimerIsNotAProblem(t *testing.T) {
	raw := strings.Replace(validReportJSON,
		`"disclaimer": "This is a preliminary AI-assisted diagnosis. Please consult a qualified healthcare professional for proper medical examination and treatment."`,
		`"disclaimer": ""`, 1)

	report, problems := decodeReport(raw)

	require.Empty(t, problems)
	assert.Empty(t, report.Disclaimer)
}

func TestDecodeReportEmptyListsAreAccepted(t *testing.T) {
	raw := strings.Replace(validReportJSON,
		`"medicines": ["Paracetamol - 500mg", "Dextromethorphan - 20mg"]`,
		`"medicines": []`, 1)

	report, problems := decodeReport(raw)

	require.Empty(t, problems)
	assert.Empty(t, report.Medicines)
}
