package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type leadQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const leadColumns = `id, created_at, full_name, email, phone, notes,
	ig_user_id, ig_username, ig_comment_id, ig_media_id, campaign, source`

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	db leadQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithDB(db leadQuerier) *PostgresRepository {
	if db == nil {
		panic("leads: db required")
	}
	return &PostgresRepository{db: db}
}

// Create inserts a new row. created_at is assigned by the database.
func (r *PostgresRepository) Create(ctx context.Context, data *IntakeData) (*Lead, error) {
	if data == nil || data.FullName == "" || data.Email == "" {
		return nil, ErrInvalidLead
	}

	id := uuid.New()
	query := `
		INSERT INTO leads (id, full_name, email, phone, notes,
			ig_user_id, ig_username, ig_comment_id, ig_media_id, campaign, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id,
		data.FullName,
		data.Email,
		data.Phone,
		data.Notes,
		data.IGUserID,
		data.IGUsername,
		data.IGCommentID,
		data.IGMediaID,
		data.Campaign,
		data.Source,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}

	return leadFromIntake(id.String(), createdAt.UTC(), data), nil
}

// GetByID fetches a single lead.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrLeadNotFound
	}
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	lead, err := scanLead(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return lead, nil
}

// List returns leads matching filter. Sort columns come from a fixed set;
// id breaks ties so paging is stable.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	query, args := buildListQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	out := []*Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: list rows: %w", err)
	}
	return out, nil
}

func buildListQuery(filter ListFilter) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + leadColumns + ` FROM leads`)

	var args []any
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		sb.WriteString(` WHERE (full_name ILIKE $1 OR email ILIKE $1 OR ig_username ILIKE $1 OR phone ILIKE $1)`)
	}

	column := SortCreatedAt
	switch filter.SortBy {
	case SortFullName, SortEmail:
		column = filter.SortBy
	}
	direction := "ASC"
	if filter.Desc {
		direction = "DESC"
	}
	fmt.Fprintf(&sb, ` ORDER BY %s %s, id %s`, column, direction, direction)

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&sb, ` OFFSET $%d`, len(args))
	}
	return sb.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanLead(row pgx.Row) (*Lead, error) {
	var lead Lead
	if err := row.Scan(
		&lead.ID,
		&lead.CreatedAt,
		&lead.FullName,
		&lead.Email,
		&lead.Phone,
		&lead.Notes,
		&lead.IGUserID,
		&lead.IGUsername,
		&lead.IGCommentID,
		&lead.IGMediaID,
		&lead.Campaign,
		&lead.Source,
	); err != nil {
		return nil, err
	}
	lead.CreatedAt = lead.CreatedAt.UTC()
	return &lead, nil
}
