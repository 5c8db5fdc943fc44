package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump flattens an error chain for structured logging. When a Postgres
// driver error sits anywhere in the chain its fields are lifted into PG.
type ErrorDump struct {
	TopMessage string     `json:"top_message"`
	Code       Code       `json:"code,omitempty"`
	Chain      []string   `json:"chain,omitempty"`
	PG         *PGDetails `json:"pg,omitempty"`
}

// PGDetails carries the driver-level fields of a Postgres error, covering
// both the pgx and lib/pq drivers.
type PGDetails struct {
	Code       string `json:"code,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
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
	d.PG = pgDetails(err)
	return d
}

func pgDetails(err error) *PGDetails {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &PGDetails{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &PGDetails{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return nil
}

// LogFields renders the dump as logger fields, omitting the PG block when
// no driver error was found.
func (d ErrorDump) LogFields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	if d.PG != nil {
		fields["pg_code"] = d.PG.Code
		fields["pg_constraint"] = d.PG.Constraint
		fields["pg_table"] = d.PG.Table
		fields["pg_column"] = d.PG.Column
		fields["pg_detail"] = d.PG.Detail
		fields["pg_message"] = d.PG.Message
	}
	return fields
}
