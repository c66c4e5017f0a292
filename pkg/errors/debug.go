package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const maxChain = 16

// ErrorDump flattens an error for the request log. Clients never see it.
type ErrorDump struct {
	TopMessage string
	Code       Code
	Scope      Scope
	OrderID    string
	Provider   string
	Status     int
	Retryable  bool
	Chain      []string
	Postgres   *PostgresDiagnostics
}

// PostgresDiagnostics is the server-side detail of a failed statement, read
// from either the pgx or the lib/pq driver error.
type PostgresDiagnostics struct {
	Code       string
	Message    string
	Detail     string
	Table      string
	Column     string
	Constraint string
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error(), Chain: chain(err)}
	if te := As(err); te != nil {
		meta := MetadataFor(te.Code())
		d.Code, d.Scope = te.Code(), meta.Scope
		d.Status, d.Retryable = meta.HTTPStatus, meta.Retryable
		d.OrderID, d.Provider = te.OrderID(), te.ProviderCode()
	}
	d.Postgres = postgresDiagnostics(err)
	return d
}

// Fields renders the dump as log fields; empty values are left out.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_chain": d.Chain,
		"retryable":   d.Retryable,
	}
	put := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	put("error_code", string(d.Code))
	put("scope", string(d.Scope))
	put("order_id", d.OrderID)
	put("provider_code", d.Provider)
	if pg := d.Postgres; pg != nil {
		put("pg_code", pg.Code)
		put("pg_message", pg.Message)
		put("pg_detail", pg.Detail)
		put("pg_table", pg.Table)
		put("pg_column", pg.Column)
		put("pg_constraint", pg.Constraint)
	}
	return fields
}

// chain walks the error tree depth first, following joined errors too.
func chain(err error) []string {
	var out []string
	var walk func(error)
	walk = func(e error) {
		for e != nil && len(out) < maxChain {
			out = append(out, fmt.Sprintf("%T: %v", e, e))
			if joined, ok := e.(interface{ Unwrap() []error }); ok {
				for _, inner := range joined.Unwrap() {
					walk(inner)
				}
				return
			}
			e = errors.Unwrap(e)
		}
	}
	walk(err)
	return out
}

func postgresDiagnostics(err error) *PostgresDiagnostics {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &PostgresDiagnostics{
			Code:       pgxErr.Code,
			Message:    pgxErr.Message,
			Detail:     pgxErr.Detail,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Constraint: pgxErr.ConstraintName,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &PostgresDiagnostics{
			Code:       string(pqErr.Code),
			Message:    pqErr.Message,
			Detail:     pqErr.Detail,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Constraint: pqErr.Constraint,
		}
	}
	return nil
}
