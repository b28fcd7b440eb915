package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"videonotes-backend/internal/models"
)

type NoteRepo struct {
	pool *pgxpool.Pool
}

func NewNoteRepo(pool *pgxpool.Pool) *NoteRepo {
	return &NoteRepo{pool: pool}
}

func (r *NoteRepo) Create(ctx context.Context, n *models.Note) error {
	n.ID = uuid.New()
	if n.Status == "" {
		n.Status = "pending"
	}

	configBytes, _ := json.Marshal(n.ConfigJSON)
	if configBytes == nil {
		configBytes = []byte("{}")
	}

	query := `INSERT INTO notes (id, session_id, title, video_id, video_title, channel, status, config_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		n.ID, n.SessionID, n.Title, n.VideoID, n.VideoTitle, n.Channel, n.Status, configBytes,
	).Scan(&n.CreatedAt)
}

func (r *NoteRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Note, error) {
	n := &models.Note{}
	query := `SELECT id, session_id, title, video_id, video_title, channel, status,
		config_json, result_json, chunk_count, error_code, created_at, updated_at
		FROM notes WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&n.ID, &n.SessionID, &n.Title, &n.VideoID, &n.VideoTitle, &n.Channel, &n.Status,
		&n.ConfigJSON, &n.ResultJSON, &n.ChunkCount, &n.ErrorCode, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *NoteRepo) ListBySession(ctx context.Context, sessionID uuid.UUID, search string, limit, offset int) ([]*models.Note, int, error) {
	var args []interface{}
	argIdx := 1

	where := fmt.Sprintf("WHERE session_id = $%d", argIdx)
	args = append(args, sessionID)
	argIdx++

	if search != "" {
		where += fmt.Sprintf(" AND (title ILIKE $%d OR video_title ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+search+"%")
		argIdx++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM notes " + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// Listing skips result_json: merged results can be large and the
	// index view only needs metadata.
	query := fmt.Sprintf(`SELECT id, session_id, title, video_id, video_title, channel, status,
		config_json, chunk_count, error_code, created_at, updated_at
		FROM notes %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)

	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var notes []*models.Note
	for rows.Next() {
		n := &models.Note{}
		err := rows.Scan(
			&n.ID, &n.SessionID, &n.Title, &n.VideoID, &n.VideoTitle, &n.Channel, &n.Status,
			&n.ConfigJSON, &n.ChunkCount, &n.ErrorCode, &n.CreatedAt, &n.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		notes = append(notes, n)
	}

	return notes, total, nil
}

func (r *NoteRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE notes SET status = $1, updated_at = NOW() WHERE id = $2",
		status, id,
	)
	return err
}

// SetResult stores the merged analysis and marks the note completed.
func (r *NoteRepo) SetResult(ctx context.Context, id uuid.UUID, title string, result json.RawMessage, chunkCount int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notes SET status = 'completed', title = $1, result_json = $2, chunk_count = $3, updated_at = NOW()
		 WHERE id = $4`,
		title, result, chunkCount, id,
	)
	return err
}

func (r *NoteRepo) MarkFailed(ctx context.Context, id uuid.UUID, code string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE notes SET status = 'failed', error_code = $1, updated_at = NOW() WHERE id = $2",
		code, id,
	)
	return err
}

func (r *NoteRepo) Delete(ctx context.Context, id, sessionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM notes WHERE id = $1 AND session_id = $2", id, sessionID)
	return err
}

// BulkDelete removes the session's notes among ids and reports how many
// rows were deleted. IDs owned by other sessions are skipped, not an
// error.
func (r *NoteRepo) BulkDelete(ctx context.Context, ids []uuid.UUID, sessionID uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	args := []interface{}{sessionID}
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}

	query := fmt.Sprintf("DELETE FROM notes WHERE session_id = $1 AND id IN (%s)", strings.Join(placeholders, ","))
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
