package take

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/mocap.report/internal/landmark"
	"github.com/banshee-data/mocap.report/internal/monitoring"
	"github.com/banshee-data/mocap.report/internal/timeutil"
)

// SQLiteStore is the embedded Store implementation. Frames are persisted one
// chunk per row as the JSON encoding they are later exported in, so the
// stored form round-trips losslessly.
type SQLiteStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// OpenSQLite opens (creating if necessary) a take database at path and
// returns a store backed by it. Use ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open take db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS takes (
			take_id        TEXT PRIMARY KEY,
			project_id     TEXT,
			name           TEXT NOT NULL,
			created_ms     BIGINT NOT NULL,
			updated_ms     BIGINT NOT NULL,
			frame_count    INTEGER NOT NULL DEFAULT 0,
			duration_ms    BIGINT NOT NULL DEFAULT 0,
			avg_fps        DOUBLE NOT NULL DEFAULT 0,
			chunk_count    INTEGER NOT NULL DEFAULT 0,
			schema_version INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS take_chunks (
			take_id      TEXT NOT NULL,
			chunk_number INTEGER NOT NULL,
			start_ts     BIGINT NOT NULL,
			end_ts       BIGINT NOT NULL,
			frame_count  INTEGER NOT NULL,
			frames_json  BLOB NOT NULL,
			PRIMARY KEY (take_id, chunk_number),
			FOREIGN KEY (take_id) REFERENCES takes(take_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create take schema: %w", err)
	}

	return &SQLiteStore{db: db, clock: timeutil.RealClock{}}, nil
}

// NewSQLiteStore wraps an already-open database handle. The schema must
// exist. A nil clock selects the real clock.
func NewSQLiteStore(db *sql.DB, clock timeutil.Clock) *SQLiteStore {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &SQLiteStore{db: db, clock: clock}
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// newTakeID builds a take id from the creation time plus a random suffix,
// globally unique for practical purposes.
func (s *SQLiteStore) newTakeID() string {
	return fmt.Sprintf("take_%d_%s", s.clock.Now().UnixMilli(), uuid.New().String()[:8])
}

// CreateTake creates a new take with zero statistics.
func (s *SQLiteStore) CreateTake(ctx context.Context, name, projectID string) (*Take, error) {
	now := s.clock.Now().UnixMilli()
	t := &Take{
		ID:            s.newTakeID(),
		ProjectID:     projectID,
		Name:          name,
		CreatedMs:     now,
		UpdatedMs:     now,
		SchemaVersion: SchemaVersion,
	}
	if t.Name == "" {
		t.Name = t.ID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO takes (
			take_id, project_id, name, created_ms, updated_ms,
			frame_count, duration_ms, avg_fps, chunk_count, schema_version
		) VALUES (?, ?, ?, ?, ?, 0, 0, 0, 0, ?)`,
		t.ID, nullString(t.ProjectID), t.Name, t.CreatedMs, t.UpdatedMs, t.SchemaVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("insert take: %w", err)
	}

	monitoring.Logf("take store: created take %s (%q)", t.ID, t.Name)
	return t, nil
}

// AppendFrames persists one numbered chunk and bumps the take counters in a
// single transaction.
func (s *SQLiteStore) AppendFrames(ctx context.Context, takeID string, chunkNumber int, frames []landmark.Frame) (*ChunkInfo, error) {
	if len(frames) == 0 {
		return &ChunkInfo{}, nil
	}

	info := &ChunkInfo{
		StartTs:    frames[0].TimestampMs,
		EndTs:      frames[len(frames)-1].TimestampMs,
		FrameCount: len(frames),
	}

	blob, err := json.Marshal(frames)
	if err != nil {
		return nil, fmt.Errorf("encode chunk %d: %w", chunkNumber, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO take_chunks (take_id, chunk_number, start_ts, end_ts, frame_count, frames_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		takeID, chunkNumber, info.StartTs, info.EndTs, info.FrameCount, blob,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chunk %d: %w", chunkNumber, err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE takes
		SET frame_count = frame_count + ?, chunk_count = chunk_count + 1, updated_ms = ?
		WHERE take_id = ?`,
		info.FrameCount, s.clock.Now().UnixMilli(), takeID,
	)
	if err != nil {
		return nil, fmt.Errorf("update take counters: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("append to take %s: %w", takeID, ErrTakeNotFound)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit chunk %d: %w", chunkNumber, err)
	}
	return info, nil
}

// FinalizeTake stamps the duration and average frame rate computed from the
// recording's first and last timestamps and its persisted frame count.
func (s *SQLiteStore) FinalizeTake(ctx context.Context, takeID string, firstTs, lastTs int64) (*Take, error) {
	t, err := s.GetTake(ctx, takeID)
	if err != nil {
		return nil, err
	}

	t.DurationMs, t.AvgFPS = FinalStats(firstTs, lastTs, t.FrameCount)
	t.UpdatedMs = s.clock.Now().UnixMilli()

	_, err = s.db.ExecContext(ctx, `
		UPDATE takes SET duration_ms = ?, avg_fps = ?, updated_ms = ? WHERE take_id = ?`,
		t.DurationMs, t.AvgFPS, t.UpdatedMs, t.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("finalize take %s: %w", takeID, err)
	}

	monitoring.Logf("take store: finalized take %s (%d frames, %.1fs, %.2f fps)",
		t.ID, t.FrameCount, float64(t.DurationMs)/1000, t.AvgFPS)
	return t, nil
}

const takeColumns = `take_id, project_id, name, created_ms, updated_ms,
	frame_count, duration_ms, avg_fps, chunk_count, schema_version`

func scanTake(row interface{ Scan(...any) error }) (*Take, error) {
	var t Take
	var projectID sql.NullString
	err := row.Scan(
		&t.ID, &projectID, &t.Name, &t.CreatedMs, &t.UpdatedMs,
		&t.FrameCount, &t.DurationMs, &t.AvgFPS, &t.ChunkCount, &t.SchemaVersion,
	)
	if err != nil {
		return nil, err
	}
	t.ProjectID = projectID.String
	return &t, nil
}

// GetTake returns a take by id, or ErrTakeNotFound.
func (s *SQLiteStore) GetTake(ctx context.Context, takeID string) (*Take, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+takeColumns+` FROM takes WHERE take_id = ?`, takeID)
	t, err := scanTake(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("take %s: %w", takeID, ErrTakeNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get take %s: %w", takeID, err)
	}
	return t, nil
}

// ListTakes returns all takes, newest first.
func (s *SQLiteStore) ListTakes(ctx context.Context) ([]*Take, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+takeColumns+` FROM takes ORDER BY created_ms DESC`)
	if err != nil {
		return nil, fmt.Errorf("list takes: %w", err)
	}
	defer rows.Close()

	var takes []*Take
	for rows.Next() {
		t, err := scanTake(rows)
		if err != nil {
			return nil, fmt.Errorf("scan take: %w", err)
		}
		takes = append(takes, t)
	}
	return takes, rows.Err()
}

// ListFrames returns every frame of a take in chunk order.
func (s *SQLiteStore) ListFrames(ctx context.Context, takeID string) ([]landmark.Frame, error) {
	if _, err := s.GetTake(ctx, takeID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT frames_json FROM take_chunks WHERE take_id = ? ORDER BY chunk_number`, takeID)
	if err != nil {
		return nil, fmt.Errorf("list chunks for %s: %w", takeID, err)
	}
	defer rows.Close()

	var frames []landmark.Frame
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		var chunk []landmark.Frame
		if err := json.Unmarshal(blob, &chunk); err != nil {
			return nil, fmt.Errorf("decode chunk for %s: %w", takeID, err)
		}
		frames = append(frames, chunk...)
	}
	return frames, rows.Err()
}

// RenameTake updates a take's display name.
func (s *SQLiteStore) RenameTake(ctx context.Context, takeID, name string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE takes SET name = ?, updated_ms = ? WHERE take_id = ?`,
		name, s.clock.Now().UnixMilli(), takeID,
	)
	if err != nil {
		return fmt.Errorf("rename take %s: %w", takeID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rename take %s: %w", takeID, ErrTakeNotFound)
	}
	return nil
}

// DeleteTake removes the take and all its chunks in one transaction, so a
// take is never partially deleted.
func (s *SQLiteStore) DeleteTake(ctx context.Context, takeID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM take_chunks WHERE take_id = ?`, takeID); err != nil {
		return fmt.Errorf("delete chunks for %s: %w", takeID, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM takes WHERE take_id = ?`, takeID)
	if err != nil {
		return fmt.Errorf("delete take %s: %w", takeID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete take %s: %w", takeID, ErrTakeNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	monitoring.Logf("take store: deleted take %s", takeID)
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
