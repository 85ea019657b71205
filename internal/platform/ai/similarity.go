// Package ai wraps the external semantic-similarity contributor used by the
// record linking engine. The contributor is opaque: it receives note content
// and an appointment context string and returns a score in [0,1]. The engine
// treats any failure as "factor absent" and continues scoring without it.
package ai

import "context"

// SimilarityRequest is one note/appointment pair to score.
type SimilarityRequest struct {
	NoteContent        string `json:"note_content"`
	AppointmentContext string `json:"appointment_context"`
}

// SimilarityResult is the outcome for one request. OK is false when the
// contributor could not produce a score; Err carries the reason when known.
type SimilarityResult struct {
	Score float64
	OK    bool
	Err   error
}

// Provider produces semantic-similarity scores. Implementations must return
// (0, false, err) rather than failing the caller when the backing service is
// unavailable.
type Provider interface {
	// Similarity scores a single note/appointment pair.
	Similarity(ctx context.Context, noteContent, appointmentContext string) (float64, bool, error)

	// BatchSimilarity scores many pairs, chunking requests to respect the
	// contributor's rate limits. The result slice is index-aligned with reqs.
	// A failed chunk yields absent results for its items; later chunks still run.
	BatchSimilarity(ctx context.Context, reqs []SimilarityRequest) []SimilarityResult
}

// Disabled is a Provider that always reports the factor as absent. Used when
// no similarity service is configured.
type Disabled struct{}

func (Disabled) Similarity(ctx context.Context, noteContent, appointmentContext string) (float64, bool, error) {
	return 0, false, nil
}

func (Disabled) BatchSimilarity(ctx context.Context, reqs []SimilarityRequest) []SimilarityResult {
	return make([]SimilarityResult, len(reqs))
}
