package linking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jonathanprocter/practice-intelligently-sub006/internal/domain/notes"
	"github.com/jonathanprocter/practice-intelligently-sub006/internal/domain/scheduling"
	"github.com/jonathanprocter/practice-intelligently-sub006/internal/platform/ai"
)

func newTestScorer() *Scorer {
	return NewScorer(ScorerConfig{}, ai.Disabled{}, zerolog.Nop())
}

func mkNote(clientID uuid.UUID, content string, createdAt time.Time) *notes.Note {
	return &notes.Note{
		ID:        uuid.New(),
		ClientID:  clientID,
		Content:   content,
		CreatedAt: createdAt,
	}
}

func mkAppt(clientID uuid.UUID, start time.Time) *scheduling.Appointment {
	return &scheduling.Appointment{
		ID:        uuid.New(),
		ClientID:  clientID,
		StartTime: start,
		EndTime:   start.Add(50 * time.Minute),
		Type:      "therapy_session",
		Status:    "scheduled",
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := newTestScorer()
	clientID := uuid.New()
	base := time.Date(2025, 7, 28, 10, 0, 0, 0, time.UTC)
	note := mkNote(clientID, "Worked on anxiety management strategies in session", base)
	pool := []*scheduling.Appointment{
		mkAppt(clientID, base.Add(-72*time.Hour)),
		mkAppt(clientID, base),
		mkAppt(clientID, base.Add(26*time.Hour)),
	}

	first := s.Score(context.Background(), note, pool, nil, "Ann Lee")
	second := s.Score(context.Background(), note, pool, nil, "Ann Lee")
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].AppointmentID != second[i].AppointmentID {
			t.Errorf("position %d: ordering differs", i)
		}
		if first[i].Confidence != second[i].Confidence {
			t.Errorf("position %d: confidence differs: %v vs %v", i, first[i].Confidence, second[i].Confidence)
		}
	}
}

func TestScoreDateMonotonic(t *testing.T) {
	s := newTestScorer()
	clientID := uuid.New()
	base := time.Date(2025, 7, 28, 10, 0, 0, 0, time.UTC)
	note := mkNote(clientID, "plain session content", base)

	prev := 2.0
	for _, days := range []int{0, 1, 3, 7, 13, 14, 30, 90} {
		pool := []*scheduling.Appointment{mkAppt(clientID, base.Add(time.Duration(days) * 24 * time.Hour))}
		got := s.Score(context.Background(), note, pool, nil, "")
		conf := 0.0
		if len(got) > 0 {
			conf = got[0].Confidence
		}
		if conf > prev {
			t.Errorf("confidence rose from %v to %v at %d days", prev, conf, days)
		}
		prev = conf
	}
}

func TestScoreDateFloorBeyondWindow(t *testing.T) {
	s := newTestScorer()
	clientID := uuid.New()
	base := time.Date(2025, 7, 28, 10, 0, 0, 0, time.UTC)
	note := mkNote(clientID, "unrelated text", base)

	at := func(days int) float64 {
		pool := []*scheduling.Appointment{mkAppt(clientID, base.Add(time.Duration(days) * 24 * time.Hour))}
		got := s.Score(context.Background(), note, pool, nil, "")
		if len(got) == 0 {
			return 0
		}
		return got[0].Confidence
	}
	if at(20) != at(90) {
		t.Errorf("confidence should be flat beyond the window: %v vs %v", at(20), at(90))
	}
}

func TestScoreJohnBestScenario(t *testing.T) {
	s := newTestScorer()
	johnID := uuid.New()
	karenID := uuid.New()
	start := time.Date(2025, 7, 28, 10, 0, 0, 0, time.UTC)

	note := mkNote(johnID, "Comprehensive Clinical Progress Note for John Best's Therapy Session", start)
	johnAppt := mkAppt(johnID, start)
	karenAppt := mkAppt(karenID, time.Date(2025, 7, 28, 14, 0, 0, 0, time.UTC))
	pool := []*scheduling.Appointment{karenAppt, johnAppt}

	got := s.Score(context.Background(), note, pool, nil, "John Best")
	if len(got) == 0 {
		t.Fatal("expected at least one suggestion")
	}
	top := got[0]
	if top.AppointmentID != johnAppt.ID {
		t.Fatalf("top suggestion should be John Best's appointment")
	}
	if top.Confidence < 0.75 {
		t.Errorf("expected confidence >= 0.75, got %v", top.Confidence)
	}
	if !top.HasDateSignal() {
		t.Error("same-day match should carry a date signal")
	}
	for _, sg := range got {
		if sg.AppointmentID == karenAppt.ID {
			t.Error("another client's appointment must never be a candidate")
		}
	}

	hasPattern := false
	for _, f := range top.Factors {
		if f.Kind == FactorPatternMatch && f.Value == 1.0 {
			hasPattern = true
		}
	}
	if !hasPattern {
		t.Error("title template naming the subject should fire the pattern factor")
	}
}

func TestScoreExcludesTakenAppointments(t *testing.T) {
	s := newTestScorer()
	clientID := uuid.New()
	base := time.Date(2025, 7, 28, 10, 0, 0, 0, time.UTC)
	note := mkNote(clientID, "session content", base)
	apt := mkAppt(clientID, base)

	taken := map[uuid.UUID]uuid.UUID{apt.ID: uuid.New()}
	got := s.Score(context.Background(), note, []*scheduling.Appointment{apt}, taken, "")
	if len(got) != 0 {
		t.Errorf("appointment held by another note should be excluded, got %d suggestions", len(got))
	}

	// Held by the scoring note itself: still a candidate.
	taken[apt.ID] = note.ID
	got = s.Score(context.Background(), note, []*scheduling.Appointment{apt}, taken, "")
	if len(got) != 1 {
		t.Errorf("appointment held by the same note should remain a candidate")
	}
}

func TestScoreTopK(t *testing.T) {
	s := NewScorer(ScorerConfig{TopK: 3}, ai.Disabled{}, zerolog.Nop())
	clientID := uuid.New()
	base := time.Date(2025, 7, 28, 10, 0, 0, 0, time.UTC)
	note := mkNote(clientID, "session content", base)

	var pool []*scheduling.Appointment
	for i := 0; i < 8; i++ {
		pool = append(pool, mkAppt(clientID, base.Add(time.Duration(i)*24*time.Hour)))
	}
	got := s.Score(context.Background(), note, pool, nil, "")
	if len(got) != 3 {
		t.Errorf("expected top-3, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Confidence > got[i-1].Confidence {
			t.Error("suggestions must be sorted by descending confidence")
		}
	}
}

func TestScoreTieBreakByStartTime(t *testing.T) {
	s := newTestScorer()
	clientID := uuid.New()
	base := time.Date(2025, 7, 28, 10, 0, 0, 0, time.UTC)
	note := mkNote(clientID, "session content", base)

	before := mkAppt(clientID, base.Add(-48*time.Hour))
	after := mkAppt(clientID, base.Add(48*time.Hour))
	got := s.Score(context.Background(), note, []*scheduling.Appointment{after, before}, nil, "")
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(got))
	}
	if got[0].Confidence != got[1].Confidence {
		t.Fatalf("equidistant appointments should tie on confidence")
	}
	if got[0].AppointmentID != before.ID {
		t.Error("ties must break toward the earlier start time")
	}
}

func TestScoreWithSimilarityFactor(t *testing.T) {
	clientID := uuid.New()
	base := time.Date(2025, 7, 28, 10, 0, 0, 0, time.UTC)
	note := mkNote(clientID, "plain content", base)
	pool := []*scheduling.Appointment{mkAppt(clientID, base)}

	without := newTestScorer().Score(context.Background(), note, pool, nil, "")
	with := NewScorer(ScorerConfig{}, fixedProvider{score: 0.0}, zerolog.Nop()).
		Score(context.Background(), note, pool, nil, "")

	if len(without) != 1 || len(with) != 1 {
		t.Fatal("expected one suggestion from each scorer")
	}
	found := false
	for _, f := range with[0].Factors {
		if f.Kind == FactorAIAnalysis {
			found = true
		}
	}
	if !found {
		t.Error("ai factor should be present when the provider responds")
	}
	// A zero similarity score pulls the combination down relative to the
	// renormalized absent case.
	if with[0].Confidence >= without[0].Confidence {
		t.Errorf("zero similarity should lower confidence: %v vs %v", with[0].Confidence, without[0].Confidence)
	}
}

func TestExtractSubjectName(t *testing.T) {
	cases := []struct {
		text string
		want string
		hit  bool
	}{
		{"Comprehensive Clinical Progress Note for John Best's Therapy Session", "John Best", true},
		{"Progress Note for Maria Santos's Counseling Session", "Maria Santos", true},
		{"Session Note for Aaron Cole", "Aaron Cole", true},
		{"Therapy Session with Jane Roe on 2025-07-01", "Jane Roe", true},
		{"Discussed coping strategies", "", false},
	}
	for _, tc := range cases {
		got, hit := extractSubjectName(tc.text)
		if hit != tc.hit || got != tc.want {
			t.Errorf("extractSubjectName(%q) = (%q, %v), want (%q, %v)", tc.text, got, hit, tc.want, tc.hit)
		}
	}
}

func TestNameMatchScore(t *testing.T) {
	if nameMatchScore("John Best", "John Best") != 1.0 {
		t.Error("exact name should score 1.0")
	}
	if nameMatchScore("john best", "John Best") != 1.0 {
		t.Error("match should be case-insensitive")
	}
	if nameMatchScore("John Smith", "John Best") != 0.5 {
		t.Error("shared first name should score 0.5")
	}
	if nameMatchScore("Karen Foster", "John Best") != 0 {
		t.Error("unrelated names should score 0")
	}
	if nameMatchScore("", "John Best") != 0 {
		t.Error("empty extraction should score 0")
	}
}
