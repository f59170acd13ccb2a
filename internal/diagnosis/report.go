package diagnosis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Report is the seven-field structured assessment the model must produce.
type Report struct {
	Diagnosis           string   `json:"diagnosis"`
	Medicines           []string `json:"medicines"`
	MedicineTiming      string   `json:"medicine_timing"`
	DietRecommendations []string `json:"diet_recommendations"`
	NearbyPharmacies    []string `json:"nearby_pharmacies"`
	RecommendedDoctors  []string `json:"recommended_doctors"`
	Disclaimer          string   `json:"disclaimer"`
}

// canonicalDisclaimer replaces any disclaimer the model omitted or cut
// short. The disclaimer is policy-critical and never left to model
// compliance.
const canonicalDisclaimer = "This is a preliminary AI-assisted diagnosis. Please consult a qualified healthcare professional for proper medical examination and treatment. This advice should not replace professional medical consultation."

// minDisclaimerLen is the shortest disclaimer accepted from the model;
// anything shorter is replaced with the canonical one.
const minDisclaimerLen = 40

// decodeReport parses raw model output into a Report, collecting every
// schema problem it finds instead of stopping at the first. An empty
// problem list means the report is usable. A missing disclaimer is not a
// problem: the validator force-sets it.
func decodeReport(raw string) (*Report, []string) {
	text := extractJSON(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, []string{fmt.Sprintf("response is not a JSON object: %v", err)}
	}

	var problems []string
	r := &Report{
		Diagnosis:           decodeText(fields, "diagnosis", true, &problems),
		Medicines:           decodeList(fields, "medicines", &problems),
		MedicineTiming:      decodeText(fields, "medicine_timing", false, &problems),
		DietRecommendations: decodeList(fields, "diet_recommendations", &problems),
		NearbyPharmacies:    decodeList(fields, "nearby_pharmacies", &problems),
		RecommendedDoctors:  decodeList(fields, "recommended_doctors", &problems),
	}
	if rawDisclaimer, ok := fields["disclaimer"]; ok {
		// Wrong-typed disclaimers are simply dropped; the canonical one
		// takes over.
		_ = json.Unmarshal(rawDisclaimer, &r.Disclaimer)
	}

	if len(problems) > 0 {
		return nil, problems
	}
	return r, nil
}

func decodeText(fields map[string]json.RawMessage, key string, requireNonEmpty bool, problems *[]string) string {
	raw, ok := fields[key]
	if !ok {
		*problems = append(*problems, key+": missing")
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		*problems = append(*problems, key+": expected a string")
		return ""
	}
	if requireNonEmpty && strings.TrimSpace(s) == "" {
		*problems = append(*problems, key+": must not be empty")
	}
	return s
}

func decodeList(fields map[string]json.RawMessage, key string, problems *[]string) []string {
	raw, ok := fields[key]
	if !ok {
		*problems = append(*problems, key+": missing (must be a JSON array of strings)")
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		*problems = append(*problems, key+": expected an array of strings, got a single string")
		return nil
	}
	*problems = append(*problems, key+": expected an array of strings")
	return nil
}

// extractJSON cuts the JSON object out of raw model output, stripping the
// markdown code fences models often wrap around it and any surrounding
// prose.
func extractJSON(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return text
}
