package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Search struct {
	ID               string
	Email            string
	FromDate         string
	ToDate           string
	CreatedAt        int64
	Success          bool
	TransactionCount int64
	FailureClass     string
	FailureReason    string
}

const searchColumns = `id, email, from_date, to_date, created_at, success,
transaction_count, failure_class, failure_reason`

func scanSearch(row interface{ Scan(dest ...any) error }) (Search, error) {
	var s Search
	err := row.Scan(
		&s.ID,
		&s.Email,
		&s.FromDate,
		&s.ToDate,
		&s.CreatedAt,
		&s.Success,
		&s.TransactionCount,
		&s.FailureClass,
		&s.FailureReason,
	)
	return s, err
}

const createSearch = `insert into search (` + searchColumns + `)
values (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateSearch(ctx context.Context, arg Search) error {
	_, err := q.db.ExecContext(ctx, createSearch,
		arg.ID,
		arg.Email,
		arg.FromDate,
		arg.ToDate,
		arg.CreatedAt,
		arg.Success,
		arg.TransactionCount,
		arg.FailureClass,
		arg.FailureReason,
	)
	return err
}

const getSearch = `select ` + searchColumns + ` from search where id = ?`

func (q *Queries) GetSearch(ctx context.Context, id string) (Search, error) {
	return scanSearch(q.db.QueryRowContext(ctx, getSearch, id))
}

const listSearches = `select ` + searchColumns + ` from search
order by created_at desc, rowid desc
limit ?`

func (q *Queries) ListSearches(ctx context.Context, limit int64) ([]Search, error) {
	rows, err := q.db.QueryContext(ctx, listSearches, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Search
	for rows.Next() {
		s, err := scanSearch(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteSearchesBefore = `delete from search where created_at < ?`

func (q *Queries) DeleteSearchesBefore(ctx context.Context, createdAt int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteSearchesBefore, createdAt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
