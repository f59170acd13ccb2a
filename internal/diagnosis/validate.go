package diagnosis

import (
	"context"
	"fmt"
	"strings"

	"remote-diagnosis-server/internal/llm"
	"remote-diagnosis-server/internal/logger"
)

// ParseOutcome is the result of decoding raw model output: either a usable
// Report or the list of schema problems that make it malformed. Keeping it
// a value rather than error-driven control flow keeps the repair transition
// explicit and testable without a live model.
type ParseOutcome struct {
	Report   *Report
	Problems []string
}

// Valid reports whether parsing produced a usable report.
func (o ParseOutcome) Valid() bool {
	return o.Report != nil && len(o.Problems) == 0
}

// ParseReport decodes raw model output against the seven-field schema.
func ParseReport(raw string) ParseOutcome {
	report, problems := decodeReport(raw)
	if len(problems) > 0 {
		return ParseOutcome{Problems: problems}
	}
	return ParseOutcome{Report: report}
}

// Validator turns raw model output into a trusted Report. A malformed
// response gets exactly one corrective round-trip; a second malformed
// response is terminal.
type Validator struct {
	client llm.Client
	log    *logger.Logger
}

// NewValidator builds a Validator that issues repair calls through client.
func NewValidator(client llm.Client, log *logger.Logger) *Validator {
	return &Validator{client: client, log: log}
}

// Validate parses the raw output of prompt. On schema problems it
// re-invokes the model once with a corrective prompt carrying the malformed
// output and the named problems; if the corrected output is still
// malformed, it fails with ErrUnavailable. At most one generation call is
// made per Validate.
func (v *Validator) Validate(ctx context.Context, prompt llm.GenerationRequest, raw string) (*Report, error) {
	outcome := ParseReport(raw)
	if outcome.Valid() {
		return finalize(outcome.Report), nil
	}

	v.log.Warn("model output malformed, attempting repair",
		"problems", strings.Join(outcome.Problems, "; "),
	)

	repaired, err := v.client.Generate(ctx, BuildRepairPrompt(prompt, raw, outcome.Problems))
	if err != nil {
		return nil, fmt.Errorf("repair generation: %w: %w", ErrUnavailable, err)
	}

	outcome = ParseReport(repaired)
	if !outcome.Valid() {
		return nil, fmt.Errorf("model output still malformed after repair (%s): %w",
			strings.Join(outcome.Problems, "; "), ErrUnavailable)
	}
	return finalize(outcome.Report), nil
}

// finalize enforces the policy-critical disclaimer: a missing or trivially
// short disclaimer is replaced with the canonical one.
func finalize(r *Report) *Report {
	if len(strings.TrimSpace(r.Disclaimer)) < minDisclaimerLen {
		r.Disclaimer = canonicalDisclaimer
	}
	return r
}
