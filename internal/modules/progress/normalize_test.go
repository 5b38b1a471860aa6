package progress

import (
	"strings"
	"testing"
	"time"

	"gorm.io/datatypes"

	types "github.com/kocahmet1/ultrasat-progress/internal/domain"
)

func TestDecide_LegacyDropsEntriesWithoutIdentifier(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := &types.QuizDocument{ID: "quiz-1", Questions: datatypes.JSON(`[{"id":"q1","text":"x"},{"id":"q2"},{}]`)}

	d := Decide(doc, now, "efficient-v1")
	if d.Disposition != NeedsMigration {
		t.Fatalf("Disposition: want=%s got=%s (%s)", NeedsMigration, d.Disposition, d.Reason)
	}
	if got := d.Patch.QuestionIDs; len(got) != 2 || got[0] != "q1" || got[1] != "q2" {
		t.Fatalf("QuestionIDs: want=[q1 q2] got=%v", got)
	}
	if d.Patch.QuestionCount != 2 {
		t.Fatalf("QuestionCount: want=2 got=%d", d.Patch.QuestionCount)
	}
	if !d.Patch.MigratedAt.Equal(now) || d.Patch.MigrationVersion != "efficient-v1" || d.Patch.DocumentID != "quiz-1" {
		t.Fatalf("patch metadata: unexpected %+v", d.Patch)
	}
	if d.SavedBytes <= 0 {
		t.Fatalf("SavedBytes: want>0 got=%d", d.SavedBytes)
	}
}

func TestDecide_NumericIdentifiers(t *testing.T) {
	doc := &types.QuizDocument{ID: "quiz-n", Questions: datatypes.JSON(`[{"id":12345678},{"id":" q7 "}]`)}
	d := Decide(doc, time.Now(), "v")
	if got := d.Patch.QuestionIDs; len(got) != 2 || got[0] != "12345678" || got[1] != "q7" {
		t.Fatalf("QuestionIDs: got=%v", got)
	}
}

func TestDecide_NoIdentifiersIsInvalid(t *testing.T) {
	doc := &types.QuizDocument{ID: "quiz-2", Questions: datatypes.JSON(`[{},{}]`)}
	d := Decide(doc, time.Now(), "v")
	if d.Disposition != Invalid {
		t.Fatalf("Disposition: want=%s got=%s", Invalid, d.Disposition)
	}
	if d.Reason == "" {
		t.Fatalf("Reason: want non-empty")
	}
	if len(d.Patch.QuestionIDs) != 0 {
		t.Fatalf("Patch: want empty got=%+v", d.Patch)
	}
}

func TestDecide_AlreadyMigrated(t *testing.T) {
	n := 1
	doc := &types.QuizDocument{
		ID:            "quiz-3",
		Questions:     datatypes.JSON(`[{"id":"q1"}]`),
		QuestionIDs:   datatypes.JSON(`["q1"]`),
		QuestionCount: &n,
	}
	if d := Decide(doc, time.Now(), "v"); d.Disposition != AlreadyMigrated {
		t.Fatalf("Disposition: want=%s got=%s", AlreadyMigrated, d.Disposition)
	}
}

func TestDecide_Unrecognized(t *testing.T) {
	cases := map[string]*types.QuizDocument{
		"neither field":   {ID: "a"},
		"questions map":   {ID: "b", Questions: datatypes.JSON(`{"id":"q1"}`)},
		"null questions":  {ID: "c", Questions: datatypes.JSON(`null`)},
		"bad identifiers": {ID: "d", QuestionIDs: datatypes.JSON(`[1,2]`)},
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			d := Decide(doc, time.Now(), "v")
			if d.Disposition != Invalid {
				t.Fatalf("Disposition: want=%s got=%s", Invalid, d.Disposition)
			}
			if !strings.HasPrefix(d.Reason, "unexpected format") {
				t.Fatalf("Reason: want unexpected format, got %q", d.Reason)
			}
		})
	}
}
