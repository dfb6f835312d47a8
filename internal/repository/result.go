package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sudooom.spy/internal/game"
)

const schema = `
	CREATE TABLE IF NOT EXISTS game_results (
		id             BIGSERIAL PRIMARY KEY,
		room_id        TEXT        NOT NULL,
		civilian_word  TEXT        NOT NULL,
		spy_word       TEXT        NOT NULL,
		winner         TEXT        NOT NULL,
		players        JSONB       NOT NULL,
		eliminated     TEXT[]      NOT NULL,
		rounds_played  INT         NOT NULL,
		finished_at    TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_game_results_room ON game_results (room_id, finished_at DESC);
`

// GameResult 已存储的对局结果
type GameResult struct {
	ID int64 `json:"id"`
	game.Result
}

// ResultRepository 对局结果仓储
type ResultRepository struct {
	db *pgxpool.Pool
}

// NewResultRepository 创建对局结果仓储
func NewResultRepository(db *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{db: db}
}

// EnsureSchema 建表
func (r *ResultRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, schema)
	return err
}

// Save 保存对局结果
func (r *ResultRepository) Save(ctx context.Context, result *game.Result) (int64, error) {
	players, err := json.Marshal(result.Players)
	if err != nil {
		return 0, fmt.Errorf("marshal players: %w", err)
	}

	query := `
		INSERT INTO game_results (room_id, civilian_word, spy_word, winner, players, eliminated, rounds_played, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	var id int64
	err = r.db.QueryRow(ctx, query,
		result.RoomID,
		result.CivilianWord,
		result.SpyWord,
		string(result.Winner),
		players,
		result.Eliminated,
		result.RoundsPlayed,
		result.FinishedAt,
	).Scan(&id)
	return id, err
}

// Recent 最近的对局结果，按时间倒序
func (r *ResultRepository) Recent(ctx context.Context, limit int) ([]*GameResult, error) {
	query := `
		SELECT id, room_id, civilian_word, spy_word, winner, players, eliminated, rounds_played, finished_at
		FROM game_results
		ORDER BY finished_at DESC, id DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return collectResults(rows)
}

// ByRoom 某房间的所有对局结果，按时间倒序
func (r *ResultRepository) ByRoom(ctx context.Context, roomID string) ([]*GameResult, error) {
	query := `
		SELECT id, room_id, civilian_word, spy_word, winner, players, eliminated, rounds_played, finished_at
		FROM game_results
		WHERE room_id = $1
		ORDER BY finished_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	return collectResults(rows)
}

func collectResults(rows pgx.Rows) ([]*GameResult, error) {
	defer rows.Close()

	results := make([]*GameResult, 0)
	for rows.Next() {
		var (
			res     GameResult
			winner  string
			players []byte
		)
		if err := rows.Scan(
			&res.ID,
			&res.RoomID,
			&res.CivilianWord,
			&res.SpyWord,
			&winner,
			&players,
			&res.Eliminated,
			&res.RoundsPlayed,
			&res.FinishedAt,
		); err != nil {
			return nil, err
		}
		res.Winner = game.Role(winner)
		if err := json.Unmarshal(players, &res.Players); err != nil {
			return nil, fmt.Errorf("unmarshal players: %w", err)
		}
		results = append(results, &res)
	}
	return results, rows.Err()
}
