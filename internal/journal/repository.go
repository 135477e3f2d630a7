// Package journal records answered searches.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/cheese-ugi/internal/domain"
)

//go:embed schema.sql
var schema string

type Repository interface {
	SaveSearch(ctx context.Context, rec *domain.SearchRecord) error
	RecentSearches(ctx context.Context, sessionID string, limit int) ([]*domain.SearchRecord, error)
}

type pgRepository struct {
	db *sql.DB
}

// Open connects to Postgres and creates the table when missing.
func Open(ctx context.Context, databaseURL string) (*sql.DB, Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil, errors.New("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(pctx, schema); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("create schema: %w", err)
	}
	return db, NewRepository(db), nil
}

func NewRepository(db *sql.DB) Repository {
	return &pgRepository{db: db}
}

func (r *pgRepository) SaveSearch(ctx context.Context, rec *domain.SearchRecord) error {
	if rec == nil {
		return fmt.Errorf("nil search record")
	}

	const query = `
		INSERT INTO ugi_searches (
			session_id,
			ply,
			agent,
			fen,
			move,
			evaluation,
			time_control,
			duration_ms,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id, ply, fen) DO UPDATE SET
			move=EXCLUDED.move,
			evaluation=EXCLUDED.evaluation,
			time_control=EXCLUDED.time_control,
			duration_ms=EXCLUDED.duration_ms,
			created_at=EXCLUDED.created_at
		RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		rec.SessionID,
		rec.Ply,
		rec.Agent,
		rec.FEN,
		rec.Move,
		int64(rec.Evaluation),
		rec.TimeControl,
		rec.Duration.Milliseconds(),
		rec.CreatedAt,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert search: %w", err)
	}
	rec.ID = id
	return nil
}

func (r *pgRepository) RecentSearches(ctx context.Context, sessionID string, limit int) ([]*domain.SearchRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
		SELECT
			id,
			session_id,
			ply,
			agent,
			fen,
			move,
			evaluation,
			time_control,
			duration_ms,
			created_at
		FROM ugi_searches
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("select searches: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.SearchRecord, 0, limit)
	for rows.Next() {
		var (
			rec        domain.SearchRecord
			eval       int64
			durationMS sql.NullInt64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&rec.Ply,
			&rec.Agent,
			&rec.FEN,
			&rec.Move,
			&eval,
			&rec.TimeControl,
			&durationMS,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan search: %w", err)
		}
		rec.Evaluation = uint64(eval)
		if durationMS.Valid {
			rec.Duration = time.Duration(durationMS.Int64) * time.Millisecond
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// memrepo keeps records in process, for runs without a database.
type memrepo struct {
	mu     sync.RWMutex
	nextID int64
	byKey  map[string]*domain.SearchRecord
}

func NewMemoryRepository() Repository {
	return &memrepo{byKey: make(map[string]*domain.SearchRecord)}
}

func (m *memrepo) SaveSearch(ctx context.Context, rec *domain.SearchRecord) error {
	if rec == nil {
		return fmt.Errorf("nil search record")
	}
	key := fmt.Sprintf("%s|%d|%s", rec.SessionID, rec.Ply, rec.FEN)

	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.byKey[key]; ok {
		rec.ID = old.ID
	} else {
		m.nextID++
		rec.ID = m.nextID
	}
	copy := *rec
	m.byKey[key] = &copy
	return nil
}

func (m *memrepo) RecentSearches(ctx context.Context, sessionID string, limit int) ([]*domain.SearchRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	m.mu.RLock()
	var out []*domain.SearchRecord
	for _, rec := range m.byKey {
		if rec.SessionID == sessionID {
			copy := *rec
			out = append(out, &copy)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
