package progress

import (
	"math"
	"sort"

	"gorm.io/datatypes"

	types "github.com/kocahmet1/ultrasat-progress/internal/domain"
)

// window is a fixed-capacity ring of outcomes. Accuracy is over whatever has
// been pushed so far, up to capacity; an empty window has accuracy 0.
type window struct {
	buf     []bool
	next    int
	size    int
	correct int
}

func newWindow(capacity int) *window {
	if capacity <= 0 {
		capacity = 1
	}
	return &window{buf: make([]bool, capacity)}
}

func (w *window) push(ok bool) {
	if w.size == len(w.buf) {
		if w.buf[w.next] {
			w.correct--
		}
	} else {
		w.size++
	}
	w.buf[w.next] = ok
	if ok {
		w.correct++
	}
	w.next = (w.next + 1) % len(w.buf)
}

func (w *window) accuracy() float64 {
	if w.size == 0 {
		return 0
	}
	return float64(w.correct) / float64(w.size)
}

type conceptTally struct {
	win   *window
	total int
}

// Aggregate replays one user's attempts in one subcategory, in the order
// given, and returns the resulting progress. Callers must pass the history in
// chronological order. The result depends only on the attempts and the
// policy: LastUpdated is the time of the latest attempt, not the wall clock.
// Returns nil for an empty history.
func Aggregate(p Policy, attempts []*types.AttemptRecord) *types.SubcategoryProgress {
	var first *types.AttemptRecord
	for _, a := range attempts {
		if a != nil {
			first = a
			break
		}
	}
	if first == nil {
		return nil
	}

	out := &types.SubcategoryProgress{
		UserID:        first.UserID,
		SubcategoryID: first.SubcategoryID,
		Level:         types.MinLevel,
	}

	recent := newWindow(p.Window)
	concepts := map[string]*conceptTally{}
	sinceLevelUp := 0

	for _, a := range attempts {
		if a == nil {
			continue
		}
		out.TotalAttempts++
		if a.IsCorrect {
			out.CorrectCount++
		}
		if a.AnsweredAt.After(out.LastUpdated) {
			out.LastUpdated = a.AnsweredAt
		}

		recent.push(a.IsCorrect)
		sinceLevelUp++
		if out.Level < types.MaxLevel && sinceLevelUp >= p.LevelUpAttempts && recent.accuracy() >= p.Threshold {
			out.Level++
			sinceLevelUp = 0
		}

		for _, c := range a.Concepts() {
			t, ok := concepts[c]
			if !ok {
				t = &conceptTally{win: newWindow(p.Window)}
				concepts[c] = t
			}
			t.total++
			t.win.push(a.IsCorrect)
		}
	}

	mastery := make(map[string]bool, len(concepts))
	for c, t := range concepts {
		mastery[c] = t.total >= p.MinConceptSamples && t.win.accuracy() >= p.Threshold
	}

	out.ConceptMastery = datatypes.NewJSONType(mastery)
	out.RecentAccuracy = recent.accuracy()
	out.Accuracy = float64(out.CorrectCount) / float64(out.TotalAttempts)
	out.AttemptsSinceLevelUp = sinceLevelUp
	out.DeriveMastered()
	return out
}

// AggregateAll groups a user's chronological history by subcategory and
// aggregates each group. Output is ordered by subcategory id.
func AggregateAll(p Policy, attempts []*types.AttemptRecord) []*types.SubcategoryProgress {
	groups := map[string][]*types.AttemptRecord{}
	for _, a := range attempts {
		if a == nil || a.SubcategoryID == "" {
			continue
		}
		groups[a.SubcategoryID] = append(groups[a.SubcategoryID], a)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*types.SubcategoryProgress, 0, len(keys))
	for _, k := range keys {
		if sp := Aggregate(p, groups[k]); sp != nil {
			out = append(out, sp)
		}
	}
	return out
}

// KeepHigherLevel folds a previously stored row into a fresh replay so a
// stored level is never lowered. Mastered is re-derived afterwards.
func KeepHigherLevel(stored, replayed *types.SubcategoryProgress) *types.SubcategoryProgress {
	if replayed == nil {
		return nil
	}
	if stored != nil && stored.Level > replayed.Level {
		replayed.Level = stored.Level
		since := stored.AttemptsSinceLevelUp + (replayed.TotalAttempts - stored.TotalAttempts)
		if since < 0 {
			since = 0
		}
		replayed.AttemptsSinceLevelUp = since
	}
	if replayed.Level > types.MaxLevel {
		replayed.Level = types.MaxLevel
	}
	replayed.DeriveMastered()
	return replayed
}

// Summary is the per-user dashboard figure pair.
type Summary struct {
	TotalQuestions int
	Accuracy       int
}

// Summarize combines the two counting units. Quiz attempts are counted per
// question; exam records are counted once per exam and carry no correctness,
// so accuracy covers quiz attempts only.
func Summarize(quizAttempts, quizCorrect, examRecords int) Summary {
	s := Summary{TotalQuestions: quizAttempts + examRecords}
	if quizAttempts > 0 {
		s.Accuracy = int(math.Round(100 * float64(quizCorrect) / float64(quizAttempts)))
	}
	return s
}

func SummarizeHistory(attempts []*types.AttemptRecord, examRecords int) Summary {
	total, correct := 0, 0
	for _, a := range attempts {
		if a == nil {
			continue
		}
		total++
		if a.IsCorrect {
			correct++
		}
	}
	return Summarize(total, correct, examRecords)
}
