package learning

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// QuizDocument is the stored quiz row. Questions holds the legacy embedded
// question objects; QuestionIDs holds the identifier list. Which one is
// meaningful is decided once by Content().
type QuizDocument struct {
	ID               string         `gorm:"type:varchar(191);primaryKey" json:"id"`
	Title            string         `gorm:"column:title" json:"title"`
	Questions        datatypes.JSON `gorm:"column:questions" json:"questions,omitempty"`
	QuestionIDs      datatypes.JSON `gorm:"column:question_ids" json:"question_ids,omitempty"`
	QuestionCount    *int           `gorm:"column:question_count" json:"question_count,omitempty"`
	MigratedAt       *time.Time     `gorm:"column:migrated_at" json:"migrated_at,omitempty"`
	MigrationVersion string         `gorm:"column:migration_version" json:"migration_version,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

func (QuizDocument) TableName() string { return "quiz_document" }

type QuizShape string

const (
	ShapeLegacy       QuizShape = "legacy"
	ShapeEfficient    QuizShape = "efficient"
	ShapeUnrecognized QuizShape = "unrecognized"
)

// QuizContent is the decoded form of a QuizDocument: exactly one of
// LegacyQuiz, EfficientQuiz or UnrecognizedQuiz.
type QuizContent interface {
	Shape() QuizShape
	quizContent()
}

// EmbeddedQuestion is one legacy question object. ID is empty when the object
// carried no usable identifier.
type EmbeddedQuestion struct {
	ID  string
	Raw json.RawMessage
}

type LegacyQuiz struct {
	Questions []EmbeddedQuestion
	// RawSize is the stored byte size of the embedded list.
	RawSize int
}

type EfficientQuiz struct {
	QuestionIDs   []string
	QuestionCount int
}

type UnrecognizedQuiz struct {
	Reason string
}

func (LegacyQuiz) Shape() QuizShape       { return ShapeLegacy }
func (EfficientQuiz) Shape() QuizShape    { return ShapeEfficient }
func (UnrecognizedQuiz) Shape() QuizShape { return ShapeUnrecognized }

func (LegacyQuiz) quizContent()       {}
func (EfficientQuiz) quizContent()    {}
func (UnrecognizedQuiz) quizContent() {}

// Content classifies the document. Presence of the identifier list wins: a
// document that has one is efficient regardless of any leftover embedded data.
func (d *QuizDocument) Content() QuizContent {
	if d == nil {
		return UnrecognizedQuiz{Reason: "nil document"}
	}
	if present(d.QuestionIDs) {
		var ids []string
		if err := json.Unmarshal(d.QuestionIDs, &ids); err != nil {
			return UnrecognizedQuiz{Reason: "question_ids is not a list of strings"}
		}
		count := len(ids)
		if d.QuestionCount != nil {
			count = *d.QuestionCount
		}
		return EfficientQuiz{QuestionIDs: ids, QuestionCount: count}
	}
	if present(d.Questions) {
		var items []json.RawMessage
		if err := json.Unmarshal(d.Questions, &items); err != nil {
			return UnrecognizedQuiz{Reason: "questions is not a list"}
		}
		out := make([]EmbeddedQuestion, 0, len(items))
		for _, raw := range items {
			out = append(out, EmbeddedQuestion{ID: questionID(raw), Raw: raw})
		}
		return LegacyQuiz{Questions: out, RawSize: len(d.Questions)}
	}
	return UnrecognizedQuiz{Reason: "neither questions nor question_ids present"}
}

func present(raw datatypes.JSON) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// questionID reads the "id" field of an embedded question. Strings and
// numbers are accepted; anything else counts as missing.
func questionID(raw json.RawMessage) string {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	switch v := obj["id"].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// QuizPatch converts a legacy document into the efficient shape.
type QuizPatch struct {
	DocumentID       string
	QuestionIDs      []string
	QuestionCount    int
	MigratedAt       time.Time
	MigrationVersion string
}
