package report

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/cdjsvis/atoman"
)

//Store keeps reports in a SQLite database, as zstd-compressed JSON.
type Store struct {
	db *sql.DB
}

//OpenStore opens (creating it if needed) the database in path.
//":memory:" gives a database that lives as long as the Store.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, atoman.NewError("open sqlite: "+err.Error(), "report.OpenStore", false)
	}
	//each connection to :memory: is a different database
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		pipeline TEXT NOT NULL,
		created INTEGER NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, atoman.NewError("create reports table: "+err.Error(), "report.OpenStore", false)
	}
	return &Store{db: db}, nil
}

//Close closes the database.
func (S *Store) Close() error {
	return S.db.Close()
}

//Save stores rep, replacing any previous report with the same pipeline ID.
func (S *Store) Save(ctx context.Context, rep *Report) error {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return atoman.NewError(err.Error(), "Store.Save", false)
	}
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		w.Close()
		return atoman.NewError("encode report: "+err.Error(), "Store.Save", false)
	}
	if err := w.Close(); err != nil {
		return atoman.NewError(err.Error(), "Store.Save", false)
	}
	_, err = S.db.ExecContext(ctx, `INSERT INTO reports (id, pipeline, created, payload) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET pipeline = excluded.pipeline, created = excluded.created, payload = excluded.payload`,
		rep.ID, rep.Pipeline, time.Now().UnixNano(), buf.Bytes())
	if err != nil {
		return atoman.NewError("insert report: "+err.Error(), "Store.Save", false)
	}
	return nil
}

//Load returns the report with the given pipeline ID.
func (S *Store) Load(ctx context.Context, id string) (*Report, error) {
	var payload []byte
	err := S.db.QueryRowContext(ctx, `SELECT payload FROM reports WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, atoman.NewError(fmt.Sprintf("no report with ID %s", id), "Store.Load", false)
	}
	if err != nil {
		return nil, atoman.NewError("select report: "+err.Error(), "Store.Load", false)
	}
	d, err := zstd.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, atoman.NewError(err.Error(), "Store.Load", false)
	}
	defer d.Close()
	rep := new(Report)
	if err := json.NewDecoder(d).Decode(rep); err != nil {
		return nil, atoman.NewError("decode report: "+err.Error(), "Store.Load", false)
	}
	return rep, nil
}

//List returns the IDs of the reports of the named pipeline, oldest first.
func (S *Store) List(ctx context.Context, pipeline string) (ids []string, err error) {
	rows, err := S.db.QueryContext(ctx, `SELECT id FROM reports WHERE pipeline = ? ORDER BY created, id`, pipeline)
	if err != nil {
		return nil, atoman.NewError("select reports: "+err.Error(), "Store.List", false)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, atoman.NewError("scan: "+err.Error(), "Store.List", false)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, atoman.NewError(err.Error(), "Store.List", false)
	}
	return ids, nil
}
