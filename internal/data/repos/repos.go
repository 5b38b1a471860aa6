package repos

import (
	"gorm.io/gorm"

	"github.com/kocahmet1/ultrasat-progress/internal/data/repos/learning"
	"github.com/kocahmet1/ultrasat-progress/internal/data/repos/user"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/logger"
)

type UserRepo = user.UserRepo

type AttemptRecordRepo = learning.AttemptRecordRepo
type ExamProgressRepo = learning.ExamProgressRepo
type SubcategoryProgressRepo = learning.SubcategoryProgressRepo
type UserStatsCacheRepo = learning.UserStatsCacheRepo
type QuizDocumentRepo = learning.QuizDocumentRepo
type QuizPatchBatch = learning.QuizPatchBatch

const DefaultWriteCeiling = learning.DefaultWriteCeiling

var ErrBatchFull = learning.ErrBatchFull

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return user.NewUserRepo(db, baseLog)
}

func NewAttemptRecordRepo(db *gorm.DB, baseLog *logger.Logger) AttemptRecordRepo {
	return learning.NewAttemptRecordRepo(db, baseLog)
}

func NewExamProgressRepo(db *gorm.DB, baseLog *logger.Logger) ExamProgressRepo {
	return learning.NewExamProgressRepo(db, baseLog)
}

func NewSubcategoryProgressRepo(db *gorm.DB, baseLog *logger.Logger) SubcategoryProgressRepo {
	return learning.NewSubcategoryProgressRepo(db, baseLog)
}

func NewUserStatsCacheRepo(db *gorm.DB, baseLog *logger.Logger) UserStatsCacheRepo {
	return learning.NewUserStatsCacheRepo(db, baseLog)
}

func NewQuizDocumentRepo(db *gorm.DB, baseLog *logger.Logger) QuizDocumentRepo {
	return learning.NewQuizDocumentRepo(db, baseLog)
}

// Set bundles every repo the progress engine reads or writes.
type Set struct {
	Users      UserRepo
	Attempts   AttemptRecordRepo
	Exams      ExamProgressRepo
	Progress   SubcategoryProgressRepo
	StatsCache UserStatsCacheRepo
	QuizDocs   QuizDocumentRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		Users:      NewUserRepo(db, baseLog),
		Attempts:   NewAttemptRecordRepo(db, baseLog),
		Exams:      NewExamProgressRepo(db, baseLog),
		Progress:   NewSubcategoryProgressRepo(db, baseLog),
		StatsCache: NewUserStatsCacheRepo(db, baseLog),
		QuizDocs:   NewQuizDocumentRepo(db, baseLog),
	}
}
