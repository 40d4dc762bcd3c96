package proctorRepository

import (
	"ProctorGuard/internal/entity"
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type SQLExecutor interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	Rebind(query string) string
}

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	NewClient(tx bool) (Client, error)
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var sqlExecutor SQLExecutor
	var commitFunc, rollbackFunc func() error

	sqlExecutor = r.DB

	if tx {
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		sqlExecutor = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		Violations: &violationsRepository{q: sqlExecutor, log: r.log},
		Commit:     commitFunc,
		Rollback:   rollbackFunc,
	}, nil
}

type ViolationStore interface {
	CreateViolation(ctx context.Context, violation entity.Violation) error
	GetViolationByID(ctx context.Context, id string) (entity.Violation, error)
	GetViolationsByExamID(ctx context.Context, examID string) ([]entity.Violation, error)
	AttachEvidence(ctx context.Context, id string, evidenceURL string) error
}

type Client struct {
	Violations ViolationStore

	Commit   func() error
	Rollback func() error
}

type violationsRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}
