package progress

import (
	"encoding/json"
	"time"

	types "github.com/kocahmet1/ultrasat-progress/internal/domain"
)

type Disposition string

const (
	NeedsMigration  Disposition = "needs_migration"
	AlreadyMigrated Disposition = "already_migrated"
	Invalid         Disposition = "invalid"
)

// Decision is what the normalizer will do with one document. Preview and
// apply both act on the same Decision.
type Decision struct {
	DocumentID  string
	Disposition Disposition
	Patch       types.QuizPatch
	Reason      string
	// SavedBytes estimates storage freed by the patch.
	SavedBytes int
}

const (
	reasonNoIdentifiers = "no embedded question carries an identifier"
)

func Decide(doc *types.QuizDocument, now time.Time, version string) Decision {
	d := Decision{}
	if doc != nil {
		d.DocumentID = doc.ID
	}
	switch c := doc.Content().(type) {
	case types.EfficientQuiz:
		d.Disposition = AlreadyMigrated
	case types.LegacyQuiz:
		patch, ok := planLegacy(d.DocumentID, c, now, version)
		if !ok {
			d.Disposition = Invalid
			d.Reason = reasonNoIdentifiers
			return d
		}
		d.Disposition = NeedsMigration
		d.Patch = patch
		d.SavedBytes = savedBytes(c.RawSize, patch.QuestionIDs)
	case types.UnrecognizedQuiz:
		d.Disposition = Invalid
		d.Reason = "unexpected format: " + c.Reason
	default:
		d.Disposition = Invalid
		d.Reason = "unexpected format"
	}
	return d
}

func planLegacy(docID string, q types.LegacyQuiz, now time.Time, version string) (types.QuizPatch, bool) {
	ids := make([]string, 0, len(q.Questions))
	for _, eq := range q.Questions {
		if eq.ID == "" {
			continue
		}
		ids = append(ids, eq.ID)
	}
	if len(ids) == 0 {
		return types.QuizPatch{}, false
	}
	return types.QuizPatch{
		DocumentID:       docID,
		QuestionIDs:      ids,
		QuestionCount:    len(ids),
		MigratedAt:       now.UTC(),
		MigrationVersion: version,
	}, true
}

func savedBytes(legacySize int, ids []string) int {
	raw, err := json.Marshal(ids)
	if err != nil {
		return 0
	}
	saved := legacySize - len(raw)
	if saved < 0 {
		return 0
	}
	return saved
}
