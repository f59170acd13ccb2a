package diagnosis

import (
	"fmt"
	"strings"

	"remote-diagnosis-server/internal/llm"
)

// systemMessage frames the assistant's role and pins the exact JSON
// structure the validator expects. The field names here must match the
// Report schema; changing them breaks parsing.
const systemMessage = `You are a medical AI assistant specializing in preliminary diagnosis based on symptoms and medical images.

IMPORTANT GUIDELINES:
1. Always provide a preliminary diagnosis based on the symptoms and/or medical images provided
2. Suggest appropriate medicines with specific dosage and timing
3. Recommend dietary changes that can help with recovery
4. Suggest types of nearby pharmacies or specific pharmacy chains where medicines can be purchased
5. Recommend types of medical specialists who would be best for treating this condition
6. Always include appropriate medical disclaimers

RESPONSE FORMAT (JSON):
{
    "diagnosis": "Preliminary diagnosis based on symptoms/images",
    "medicines": ["Medicine 1 - Dosage", "Medicine 2 - Dosage", "Medicine 3 - Dosage"],
    "medicine_timing": "Detailed timing schedule for taking medicines (e.g., Medicine 1: Take twice daily after meals, Medicine 2: Take once at bedtime)",
    "diet_recommendations": ["Dietary advice 1", "Dietary advice 2", "Dietary advice 3"],
    "nearby_pharmacies": ["Pharmacy chain 1", "Pharmacy chain 2", "Local independent pharmacies"],
    "recommended_doctors": ["Specialist type 1 (e.g., Dermatologist)", "Specialist type 2 (e.g., General Practitioner)"],
    "disclaimer": "This is a preliminary AI-assisted diagnosis. Please consult a qualified healthcare professional for proper medical examination and treatment."
}

Always respond in valid JSON format with the exact structure above. Do not include any text outside the JSON object.`

// notReported marks absent optional patient attributes in the prompt, so
// the model cannot mistake an omitted field for one it should infer.
const notReported = "not reported"

// BuildPrompt renders a normalized request into a generation request. It is
// deterministic: equal requests produce byte-identical prompts, which keeps
// the repair round-trip reproducible. The image rides as a separate
// multimodal attachment, never inlined into the text.
func BuildPrompt(req *Request) llm.GenerationRequest {
	var b strings.Builder

	b.WriteString("PATIENT INFORMATION:\n")
	if req.PatientAge != nil {
		fmt.Fprintf(&b, "Age: %d years.\n", *req.PatientAge)
	} else {
		b.WriteString("Age: " + notReported + ".\n")
	}
	if req.PatientGender != "" {
		fmt.Fprintf(&b, "Gender: %s.\n", req.PatientGender)
	} else {
		b.WriteString("Gender: " + notReported + ".\n")
	}
	if req.Location != "" {
		fmt.Fprintf(&b, "Location: %s.\n", req.Location)
	} else {
		b.WriteString("Location: " + notReported + ".\n")
	}

	b.WriteString("\nSYMPTOMS: " + req.Symptoms + "\n")
	b.WriteString("\nPlease analyze these symptoms and provide a comprehensive medical assessment following the JSON format specified in your system message.")

	gen := llm.GenerationRequest{System: systemMessage, User: b.String()}
	if req.Image != nil {
		gen.User += "\n\nPlease also analyze the provided medical image for additional diagnostic information."
		gen.Attachments = []llm.Attachment{*req.Image}
	}
	return gen
}

// BuildRepairPrompt asks the model to correct a malformed response. The
// original user prompt and attachments are resent in full, together with
// the malformed output and the exact problems found.
func BuildRepairPrompt(original llm.GenerationRequest, raw string, problems []string) llm.GenerationRequest {
	var b strings.Builder

	b.WriteString("Your previous response to the request below could not be parsed into the required JSON structure.\n")
	b.WriteString("\nORIGINAL REQUEST:\n")
	b.WriteString(original.User)
	b.WriteString("\n\nYOUR PREVIOUS RESPONSE:\n")
	b.WriteString(raw)
	b.WriteString("\n\nPROBLEMS:\n")
	for _, p := range problems {
		b.WriteString("- " + p + "\n")
	}
	b.WriteString("\nRespond again with only the corrected JSON object in the exact format from your system message. Do not include any other text.")

	return llm.GenerationRequest{
		System:      original.System,
		User:        b.String(),
		Attachments: original.Attachments,
	}
}
