package domain

import (
	"github.com/kocahmet1/ultrasat-progress/internal/domain/learning"
	"github.com/kocahmet1/ultrasat-progress/internal/domain/user"
)

type User = user.User

type AttemptRecord = learning.AttemptRecord
type ExamProgress = learning.ExamProgress
type SubcategoryProgress = learning.SubcategoryProgress
type UserStatsCache = learning.UserStatsCache
type QuizDocument = learning.QuizDocument

type QuizContent = learning.QuizContent
type QuizShape = learning.QuizShape
type LegacyQuiz = learning.LegacyQuiz
type EfficientQuiz = learning.EfficientQuiz
type UnrecognizedQuiz = learning.UnrecognizedQuiz
type EmbeddedQuestion = learning.EmbeddedQuestion
type QuizPatch = learning.QuizPatch

const (
	ShapeLegacy       = learning.ShapeLegacy
	ShapeEfficient    = learning.ShapeEfficient
	ShapeUnrecognized = learning.ShapeUnrecognized

	MinLevel = learning.MinLevel
	MaxLevel = learning.MaxLevel
)
