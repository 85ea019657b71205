package linking

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jonathanprocter/practice-intelligently-sub006/internal/domain/notes"
	"github.com/jonathanprocter/practice-intelligently-sub006/internal/domain/scheduling"
	"github.com/jonathanprocter/practice-intelligently-sub006/internal/platform/ai"
)

// Factor weights. The weighted sum is renormalized over the factors that
// are actually present for a pair, so an absent similarity service never
// drags every confidence down.
const (
	weightDateProximity = 0.40
	weightPatternMatch  = 0.30
	weightContentMatch  = 0.20
	weightAIAnalysis    = 0.10

	// dateDecayFloor is the date factor value at and beyond the window edge.
	dateDecayFloor = 0.05
)

// ScorerConfig carries the tunables for a scoring pass.
type ScorerConfig struct {
	// DateWindowDays is the distance at which the date factor bottoms out.
	DateWindowDays int
	// ScoreFloor drops candidates whose combined confidence is below it.
	ScoreFloor float64
	// TopK caps the number of suggestions returned per note.
	TopK int
}

func (c *ScorerConfig) applyDefaults() {
	if c.DateWindowDays <= 0 {
		c.DateWindowDays = 14
	}
	if c.ScoreFloor <= 0 {
		c.ScoreFloor = 0.1
	}
	if c.TopK <= 0 {
		c.TopK = 5
	}
}

// Scorer ranks candidate appointments for an unlinked note. Scoring is pure
// with respect to the record stores: it reads nothing and writes nothing,
// so repeated calls with the same inputs produce identical output.
type Scorer struct {
	cfg    ScorerConfig
	ai     ai.Provider
	logger zerolog.Logger
}

func NewScorer(cfg ScorerConfig, provider ai.Provider, logger zerolog.Logger) *Scorer {
	cfg.applyDefaults()
	if provider == nil {
		provider = ai.Disabled{}
	}
	return &Scorer{cfg: cfg, ai: provider, logger: logger}
}

// Score produces ranked link suggestions for one note against an appointment
// pool. taken maps appointment ids to the note currently linked to them;
// appointments held by a different note are excluded. subjectName is the
// client's display name, used by the pattern and content factors.
//
// Ordering is deterministic: confidence descending, then date distance
// ascending, then appointment start time ascending.
func (s *Scorer) Score(ctx context.Context, note *notes.Note, pool []*scheduling.Appointment, taken map[uuid.UUID]uuid.UUID, subjectName string) []LinkSuggestion {
	var candidates []*scheduling.Appointment
	for _, apt := range pool {
		if apt.ClientID != note.ClientID {
			continue
		}
		if holder, ok := taken[apt.ID]; ok && holder != note.ID {
			continue
		}
		candidates = append(candidates, apt)
	}
	if len(candidates) == 0 {
		return nil
	}

	aiScores := s.similarityScores(ctx, note, candidates, subjectName)

	text := note.SearchText()
	extractedName, templateHit := extractSubjectName(text)

	suggestions := make([]LinkSuggestion, 0, len(candidates))
	for i, apt := range candidates {
		var factors []Factor

		gap := absDuration(note.CreatedAt.Sub(apt.StartTime))
		dateVal := s.dateProximity(gap)
		factors = append(factors, Factor{
			Kind:        FactorDateProximity,
			Weight:      weightDateProximity,
			Value:       dateVal,
			Description: describeGap(gap),
		})

		if templateHit {
			if patVal := nameMatchScore(extractedName, subjectName); patVal > 0 {
				factors = append(factors, Factor{
					Kind:        FactorPatternMatch,
					Weight:      weightPatternMatch,
					Value:       patVal,
					Description: fmt.Sprintf("title names %q", extractedName),
				})
			}
		}

		contentVal, contentDesc := contentMatch(text, subjectName, apt)
		factors = append(factors, Factor{
			Kind:        FactorContentMatch,
			Weight:      weightContentMatch,
			Value:       contentVal,
			Description: contentDesc,
		})

		if res := aiScores[i]; res.OK {
			factors = append(factors, Factor{
				Kind:        FactorAIAnalysis,
				Weight:      weightAIAnalysis,
				Value:       res.Score,
				Description: "semantic similarity",
			})
		}

		confidence := combine(factors)
		if confidence < s.cfg.ScoreFloor {
			continue
		}
		suggestions = append(suggestions, LinkSuggestion{
			NoteID:        note.ID,
			AppointmentID: apt.ID,
			Confidence:    confidence,
			Reason:        buildReason(factors),
			Factors:       factors,
			dateGap:       gap,
			startTime:     apt.StartTime,
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Confidence != suggestions[j].Confidence {
			return suggestions[i].Confidence > suggestions[j].Confidence
		}
		if suggestions[i].dateGap != suggestions[j].dateGap {
			return suggestions[i].dateGap < suggestions[j].dateGap
		}
		return suggestions[i].startTime.Before(suggestions[j].startTime)
	})
	if len(suggestions) > s.cfg.TopK {
		suggestions = suggestions[:s.cfg.TopK]
	}
	return suggestions
}

// similarityScores asks the contributor for one score per candidate. Any
// failure degrades to "factor absent" for the affected pairs.
func (s *Scorer) similarityScores(ctx context.Context, note *notes.Note, candidates []*scheduling.Appointment, subjectName string) []ai.SimilarityResult {
	if _, disabled := s.ai.(ai.Disabled); disabled {
		return make([]ai.SimilarityResult, len(candidates))
	}
	reqs := make([]ai.SimilarityRequest, len(candidates))
	for i, apt := range candidates {
		reqs[i] = ai.SimilarityRequest{
			NoteContent:        note.SearchText(),
			AppointmentContext: appointmentContext(apt, subjectName),
		}
	}
	results := s.ai.BatchSimilarity(ctx, reqs)
	for _, r := range results {
		if r.Err != nil {
			s.logger.Warn().Err(r.Err).Str("note_id", note.ID.String()).
				Msg("similarity contributor failed, scoring without ai factor")
			break
		}
	}
	return results
}

// dateProximity decays linearly from 1.0 at zero distance to the floor at
// the window edge, and stays at the floor beyond it. Monotonically
// non-increasing in the gap.
func (s *Scorer) dateProximity(gap time.Duration) float64 {
	window := float64(s.cfg.DateWindowDays)
	days := math.Min(gap.Hours()/24, window)
	return 1 - (1-dateDecayFloor)*days/window
}

// combine renormalizes the weighted sum over the factors present so absent
// contributors do not penalize the pair.
func combine(factors []Factor) float64 {
	var sum, totalWeight float64
	for _, f := range factors {
		sum += f.Weight * f.Value
		totalWeight += f.Weight
	}
	if totalWeight == 0 {
		return 0
	}
	return sum / totalWeight
}

func buildReason(factors []Factor) string {
	best := factors[0]
	for _, f := range factors[1:] {
		if f.Weight*f.Value > best.Weight*best.Value {
			best = f
		}
	}
	return best.Description
}

// Title templates that name the subject directly. Ordered strongest first;
// the first match wins so near-identical phrasings never double-count.
var titleTemplates = []*regexp.Regexp{
	regexp.MustCompile(`(?i)progress note for (.+?)'s (?:therapy|counseling|intake) session`),
	regexp.MustCompile(`(?i)session note for (.+?)(?:\s+on\s.*)?$`),
	regexp.MustCompile(`(?i)(?:therapy|counseling) session with (.+?)(?:\s+on\s.*)?$`),
}

// extractSubjectName runs the note text against the known title templates
// and returns the captured name from the first one that fires.
func extractSubjectName(text string) (string, bool) {
	firstLine := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		firstLine = text[:i]
	}
	for _, re := range titleTemplates {
		if m := re.FindStringSubmatch(firstLine); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

// nameMatchScore compares a heuristically extracted name against the
// subject's name. Full match is near-certain; sharing only one name token
// is weak evidence.
func nameMatchScore(extracted, subject string) float64 {
	e := strings.ToLower(strings.TrimSpace(extracted))
	s := strings.ToLower(strings.TrimSpace(subject))
	if e == "" || s == "" {
		return 0
	}
	if e == s {
		return 1.0
	}
	eTokens := strings.Fields(e)
	for _, t := range strings.Fields(s) {
		for _, et := range eTokens {
			if t == et {
				return 0.5
			}
		}
	}
	return 0
}

// contentMatch scores lexical evidence: the subject's name appearing in the
// note text, or overlap between the note and the appointment's metadata.
func contentMatch(text, subjectName string, apt *scheduling.Appointment) (float64, string) {
	lower := strings.ToLower(text)

	if subjectName != "" && strings.Contains(lower, strings.ToLower(subjectName)) {
		return 1.0, fmt.Sprintf("note mentions %s", subjectName)
	}

	noteTokens := tokenSet(lower)
	ctxTokens := tokenSet(strings.ToLower(appointmentContext(apt, subjectName)))
	if len(ctxTokens) == 0 {
		return 0, "no appointment metadata to match"
	}
	matched := 0
	for t := range ctxTokens {
		if noteTokens[t] {
			matched++
		}
	}
	score := float64(matched) / float64(len(ctxTokens))
	if matched == 0 {
		return 0, "no content overlap"
	}
	return score, fmt.Sprintf("%d shared terms with appointment metadata", matched)
}

func tokenSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if len(f) >= 3 {
			out[f] = true
		}
	}
	return out
}

// appointmentContext renders the appointment for the content factor and the
// similarity contributor.
func appointmentContext(apt *scheduling.Appointment, subjectName string) string {
	parts := []string{
		strings.ReplaceAll(apt.Type, "_", " "),
		apt.StartTime.Format("2006-01-02 15:04"),
	}
	if subjectName != "" {
		parts = append(parts, subjectName)
	}
	if apt.Location != nil && *apt.Location != "" {
		parts = append(parts, *apt.Location)
	}
	if apt.Notes != nil && *apt.Notes != "" {
		parts = append(parts, *apt.Notes)
	}
	return strings.Join(parts, " ")
}

func describeGap(gap time.Duration) string {
	switch {
	case gap < 24*time.Hour:
		return "same-day appointment"
	case gap < 48*time.Hour:
		return "appointment within one day"
	default:
		return fmt.Sprintf("appointment %d days away", int(gap.Hours()/24))
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
