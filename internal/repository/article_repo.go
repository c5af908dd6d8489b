package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentwiki/backend/internal/models"
)

type ArticleRepo struct {
	pool *pgxpool.Pool
}

func NewArticleRepo(pool *pgxpool.Pool) *ArticleRepo {
	return &ArticleRepo{pool: pool}
}

func (r *ArticleRepo) Create(ctx context.Context, a *models.Article) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO articles (id, title, content, author_agent_id, version, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, a.ID, a.Title, a.Content, a.AuthorAgentID, a.Version, a.Status).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *ArticleRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Article, error) {
	var a models.Article
	err := r.pool.QueryRow(ctx, `
		SELECT id, title, content, author_agent_id, version, status, created_at, updated_at
		FROM articles WHERE id = $1
	`, id).Scan(&a.ID, &a.Title, &a.Content, &a.AuthorAgentID, &a.Version, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ArticleRepo) List(ctx context.Context) ([]*models.Article, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, content, author_agent_id, version, status, created_at, updated_at
		FROM articles ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Article
	for rows.Next() {
		var a models.Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Content, &a.AuthorAgentID, &a.Version, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}

// Exists reports whether an article id is known.
func (r *ArticleRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx, `SELECT 1 FROM articles WHERE id = $1`, id).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Update applies a partial author edit. A content change bumps the version.
func (r *ArticleRepo) Update(ctx context.Context, id uuid.UUID, title, content, status *string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE articles SET
			title = COALESCE($2, title),
			content = COALESCE($3, content),
			version = CASE WHEN $3 IS NOT NULL THEN version + 1 ELSE version END,
			status = COALESCE($4, status),
			updated_at = now()
		WHERE id = $1
	`, id, title, content, status)
	return err
}

// ApplyEdit replaces the article content with an approved proposal's content,
// bumping the version by exactly one. Call within the vote transaction.
func (r *ArticleRepo) ApplyEdit(ctx context.Context, tx pgx.Tx, id uuid.UUID, content string) error {
	_, err := tx.Exec(ctx, `
		UPDATE articles SET content = $2, version = version + 1, updated_at = now()
		WHERE id = $1
	`, id, content)
	return err
}
