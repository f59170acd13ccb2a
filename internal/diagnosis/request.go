package diagnosis

import (
	"encoding/base64"
	"fmt"
	"strings"

	"remote-diagnosis-server/internal/llm"
)

// DiagnoseInput is the wire-level diagnose payload. The image travels as a
// base64 string, optionally with a data: URI prefix carrying its media type.
type DiagnoseInput struct {
	Symptoms       string `json:"symptoms" binding:"required"`
	PatientAge     *int   `json:"patient_age"`
	PatientGender  string `json:"patient_gender"`
	Location       string `json:"location"`
	ImageBase64    string `json:"image_base64"`
	ImageMediaType string `json:"image_media_type"`
}

// Request is a normalized diagnose request. It lives only for the duration
// of one Diagnose call. A nil Image means no image was submitted.
type Request struct {
	Symptoms      string
	PatientAge    *int
	PatientGender string
	Location      string
	Image         *llm.Attachment
}

const maxPatientAge = 130

// acceptedImageTypes lists the media types the model providers accept as
// inline image payloads.
var acceptedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"image/heic": true,
}

// NormalizeRequest validates and canonicalizes the incoming payload. It is
// pure: no network or storage calls. maxImageBytes bounds the decoded image
// size; zero means unbounded.
func NormalizeRequest(in DiagnoseInput, maxImageBytes int64) (*Request, error) {
	symptoms := strings.TrimSpace(in.Symptoms)
	if symptoms == "" {
		return nil, &ValidationError{Field: "symptoms", Reason: "must not be empty"}
	}
	if in.PatientAge != nil {
		if *in.PatientAge < 0 {
			return nil, &ValidationError{Field: "patient_age", Reason: "must not be negative"}
		}
		if *in.PatientAge > maxPatientAge {
			return nil, &ValidationError{Field: "patient_age", Reason: fmt.Sprintf("must be at most %d", maxPatientAge)}
		}
	}

	req := &Request{
		Symptoms:      symptoms,
		PatientAge:    in.PatientAge,
		PatientGender: strings.TrimSpace(in.PatientGender),
		Location:      strings.TrimSpace(in.Location),
	}

	if strings.TrimSpace(in.ImageBase64) != "" {
		image, err := decodeImage(in.ImageBase64, in.ImageMediaType, maxImageBytes)
		if err != nil {
			return nil, err
		}
		req.Image = image
	}
	return req, nil
}

// decodeImage turns a base64 payload into an attachment, rejecting oversize
// or non-image payloads before any generation call is made.
func decodeImage(encoded, mediaType string, maxBytes int64) (*llm.Attachment, error) {
	encoded = strings.TrimSpace(encoded)

	// Accept and strip data:image/png;base64,.... prefixes; the prefix's
	// media type wins over the separate field.
	if strings.HasPrefix(encoded, "data:") {
		meta, payload, ok := strings.Cut(strings.TrimPrefix(encoded, "data:"), ",")
		if !ok {
			return nil, &ValidationError{Field: "image", Reason: "malformed data URI"}
		}
		if mt, _, _ := strings.Cut(meta, ";"); mt != "" {
			mediaType = mt
		}
		encoded = payload
	}

	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "" {
		mediaType = "image/jpeg"
	}
	if !acceptedImageTypes[mediaType] {
		return nil, &ValidationError{Field: "image", Reason: fmt.Sprintf("unsupported media type %q", mediaType)}
	}

	// Bound by the encoded length first so an oversize payload is rejected
	// without decoding it.
	if maxBytes > 0 && int64(base64.StdEncoding.DecodedLen(len(encoded))) > maxBytes {
		return nil, &ValidationError{Field: "image", Reason: fmt.Sprintf("exceeds the %d byte limit", maxBytes)}
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &ValidationError{Field: "image", Reason: "not valid base64"}
	}
	return &llm.Attachment{MediaType: mediaType, Data: data}, nil
}
