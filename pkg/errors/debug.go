package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// Violation classifies the store constraint behind a failed write.
type Violation string

const (
	ViolationUnique     Violation = "unique"
	ViolationForeignKey Violation = "foreign_key"
	ViolationNotNull    Violation = "not_null"
	ViolationCheck      Violation = "check"
)

// ErrorDump is the log-friendly breakdown of an error chain.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	Store      string    `json:"store,omitempty"`
	StoreCode  string    `json:"store_code,omitempty"`
	Violation  Violation `json:"violation,omitempty"`
	Constraint string    `json:"constraint,omitempty"`
	Table      string    `json:"table,omitempty"`
	Column     string    `json:"column,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Message    string    `json:"message,omitempty"`
}

var pgViolations = map[string]Violation{
	"23505": ViolationUnique,
	"23503": ViolationForeignKey,
	"23502": ViolationNotNull,
	"23514": ViolationCheck,
}

var sqliteViolations = map[sqlite3.ErrNoExtended]Violation{
	sqlite3.ErrConstraintUnique:     ViolationUnique,
	sqlite3.ErrConstraintPrimaryKey: ViolationUnique,
	sqlite3.ErrConstraintForeignKey: ViolationForeignKey,
	sqlite3.ErrConstraintNotNull:    ViolationNotNull,
	sqlite3.ErrConstraintCheck:      ViolationCheck,
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	var sqliteErr sqlite3.Error
	switch {
	case errors.As(err, &pgxErr):
		d.Store = "postgres"
		d.StoreCode = pgxErr.Code
		d.Violation = pgViolations[pgxErr.Code]
		d.Constraint = pgxErr.ConstraintName
		d.Table = pgxErr.TableName
		d.Column = pgxErr.ColumnName
		d.Detail = pgxErr.Detail
		d.Message = pgxErr.Message
	case errors.As(err, &pqErr):
		d.Store = "postgres"
		d.StoreCode = string(pqErr.Code)
		d.Violation = pgViolations[string(pqErr.Code)]
		d.Constraint = pqErr.Constraint
		d.Table = pqErr.Table
		d.Column = pqErr.Column
		d.Detail = pqErr.Detail
		d.Message = pqErr.Message
	case errors.As(err, &sqliteErr):
		d.Store = "sqlite"
		d.StoreCode = fmt.Sprintf("%d", int(sqliteErr.ExtendedCode))
		d.Violation = sqliteViolations[sqliteErr.ExtendedCode]
		d.Message = sqliteErr.Error()
	case errors.Is(err, gorm.ErrDuplicatedKey):
		d.Violation = ViolationUnique
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		d.Violation = ViolationForeignKey
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		d.Violation = ViolationCheck
	}
	return d
}
