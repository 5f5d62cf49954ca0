// Package store provides the persistence layer behind core.Repository and
// core.BlockStore. PostgresStore follows the connection-pool-over-
// database/sql shape of the rag-platform-style db package in the retrieval
// pack (jackc/pgx/v5's stdlib driver registered under database/sql),
// generalized from one schema to this domain's eight tables.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"omrledger/core"
)

//go:embed schema.sql
var schemaSQL string

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxLifetime = 45 * time.Minute
	defaultConnectTimeout  = 10 * time.Second
)

var ErrEmptyDSN = errors.New("store: empty DSN")

// Config configures the Postgres connection pool.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = defaultMaxOpenConns
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = defaultMaxIdleConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = defaultConnMaxLifetime
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
}

// PostgresStore implements core.BlockStore and core.Repository over a
// pgx/v5-backed database/sql pool.
type PostgresStore struct {
	db *sql.DB
}

// Connect opens the pool, verifies connectivity, and applies the embedded
// schema (idempotent: every statement is CREATE ... IF NOT EXISTS).
func Connect(ctx context.Context, cfg Config) (*PostgresStore, error) {
	cfg.applyDefaults()
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, ErrEmptyDSN
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(connectCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Close() error { return p.db.Close() }

// --- core.BlockStore ---

func (p *PostgresStore) SaveBlock(ctx context.Context, b *core.Block) error {
	data, err := json.Marshal(b.Data)
	if err != nil {
		return err
	}
	order, err := json.Marshal(b.DataOrder)
	if err != nil {
		return err
	}
	sigs, err := json.Marshal(b.Signatures)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO blocks (index, timestamp, block_type, data, data_order, previous_hash, merkle_root, nonce, hash, signatures)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (index) DO NOTHING`,
		b.Index, b.Timestamp, string(b.BlockType), data, order, b.PreviousHash, b.MerkleRoot, b.Nonce, b.Hash, sigs)
	return err
}

func (p *PostgresStore) LoadBlocks(ctx context.Context) ([]*core.Block, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT index, timestamp, block_type, data, data_order, previous_hash, merkle_root, nonce, hash, signatures
		FROM blocks ORDER BY index ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*core.Block
	for rows.Next() {
		b := &core.Block{}
		var blockType string
		var data, order, sigs []byte
		if err := rows.Scan(&b.Index, &b.Timestamp, &blockType, &data, &order, &b.PreviousHash, &b.MerkleRoot, &b.Nonce, &b.Hash, &sigs); err != nil {
			return nil, err
		}
		b.BlockType = core.BlockType(blockType)
		if err := json.Unmarshal(data, &b.Data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(order, &b.DataOrder); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(sigs, &b.Signatures); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// --- core.Repository ---

func (p *PostgresStore) GetSheet(ctx context.Context, sheetID string) (*core.Sheet, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx, `SELECT data FROM sheets WHERE sheet_id = $1`, sheetID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewError(core.KindNotFound, fmt.Sprintf("sheet %s not found", sheetID))
	}
	if err != nil {
		return nil, core.WrapError(core.KindPersistenceFailed, "load sheet", err)
	}
	var s core.Sheet
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *PostgresStore) SaveSheet(ctx context.Context, s *core.Sheet) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO sheets (sheet_id, data) VALUES ($1, $2)
		ON CONFLICT (sheet_id) DO UPDATE SET data = EXCLUDED.data`, s.SheetID, raw)
	return err
}

func (p *PostgresStore) FindSheetByFileHash(ctx context.Context, fileHash string) (*core.Sheet, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx, `SELECT data FROM sheets WHERE data->>'original_file_hash' = $1 LIMIT 1`, fileHash).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewError(core.KindNotFound, fmt.Sprintf("no sheet scanned with file hash %s", fileHash))
	}
	if err != nil {
		return nil, core.WrapError(core.KindPersistenceFailed, "find sheet by file hash", err)
	}
	var s core.Sheet
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *PostgresStore) AppendEvent(ctx context.Context, ev core.Event) error {
	data, err := json.Marshal(ev.EventData)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO events (event_id, sheet_id, event_type, event_data, block_hash, actor, timestamp)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		ev.EventID, ev.SheetID, ev.EventType, data, ev.BlockHash, ev.Actor, ev.Timestamp)
	return err
}

func (p *PostgresStore) EventsBySheet(ctx context.Context, sheetID string) ([]core.Event, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT event_id, sheet_id, event_type, event_data, block_hash, actor, timestamp
		FROM events WHERE sheet_id = $1 ORDER BY timestamp ASC`, sheetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Event
	for rows.Next() {
		var ev core.Event
		var data []byte
		var blockHash sql.NullString
		if err := rows.Scan(&ev.EventID, &ev.SheetID, &ev.EventType, &data, &blockHash, &ev.Actor, &ev.Timestamp); err != nil {
			return nil, err
		}
		ev.BlockHash = blockHash.String
		if len(data) > 0 {
			if err := json.Unmarshal(data, &ev.EventData); err != nil {
				return nil, err
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (p *PostgresStore) SaveSignature(ctx context.Context, sheetID, attemptID string, sig core.Signature) error {
	raw, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO signatures (sheet_id, attempt_id, signer_type, data)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (sheet_id, attempt_id, signer_type) DO UPDATE SET data = EXCLUDED.data`,
		sheetID, attemptID, string(sig.SignerType), raw)
	return err
}

func (p *PostgresStore) LoadSignatures(ctx context.Context, sheetID, attemptID string) ([]core.Signature, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT data FROM signatures WHERE sheet_id = $1 AND attempt_id = $2`, sheetID, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Signature
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var sig core.Signature
		if err := json.Unmarshal(raw, &sig); err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (p *PostgresStore) CreateIntervention(ctx context.Context, hi core.HumanIntervention) error {
	raw, err := json.Marshal(hi)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO human_interventions (intervention_id, data) VALUES ($1,$2)`, hi.InterventionID, raw)
	return err
}

func (p *PostgresStore) ResolveIntervention(ctx context.Context, interventionID, resolution string) (core.HumanIntervention, error) {
	var raw []byte
	if err := p.db.QueryRowContext(ctx, `SELECT data FROM human_interventions WHERE intervention_id = $1`, interventionID).Scan(&raw); err != nil {
		return core.HumanIntervention{}, err
	}
	var hi core.HumanIntervention
	if err := json.Unmarshal(raw, &hi); err != nil {
		return core.HumanIntervention{}, err
	}
	hi.Status = core.InterventionResolved
	hi.Resolution = resolution
	updated, err := json.Marshal(hi)
	if err != nil {
		return core.HumanIntervention{}, err
	}
	if _, err := p.db.ExecContext(ctx, `UPDATE human_interventions SET data = $2 WHERE intervention_id = $1`, interventionID, updated); err != nil {
		return core.HumanIntervention{}, err
	}
	return hi, nil
}

func (p *PostgresStore) ListInterventions(ctx context.Context, status string) ([]core.HumanIntervention, error) {
	var rows *sql.Rows
	var err error
	if status == "" {
		rows, err = p.db.QueryContext(ctx, `SELECT data FROM human_interventions`)
	} else {
		rows, err = p.db.QueryContext(ctx, `SELECT data FROM human_interventions WHERE data->>'status' = $1`, status)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.HumanIntervention
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var hi core.HumanIntervention
		if err := json.Unmarshal(raw, &hi); err != nil {
			return nil, err
		}
		out = append(out, hi)
	}
	return out, rows.Err()
}

func (p *PostgresStore) SaveAnswerKey(ctx context.Context, ak core.AnswerKey) error {
	raw, err := json.Marshal(ak)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO answer_keys (exam_id, data) VALUES ($1,$2)
		ON CONFLICT (exam_id) DO UPDATE SET data = EXCLUDED.data`, ak.ExamID, raw)
	return err
}

func (p *PostgresStore) GetAnswerKey(ctx context.Context, examID string) (*core.AnswerKey, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx, `SELECT data FROM answer_keys WHERE exam_id = $1`, examID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewError(core.KindNotFound, fmt.Sprintf("answer key for exam %s not found", examID))
	}
	if err != nil {
		return nil, core.WrapError(core.KindPersistenceFailed, "load answer key", err)
	}
	var ak core.AnswerKey
	if err := json.Unmarshal(raw, &ak); err != nil {
		return nil, err
	}
	return &ak, nil
}

func (p *PostgresStore) SaveEvaluation(ctx context.Context, ev core.Evaluation) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO evaluation_results (sheet_id, data) VALUES ($1,$2)
		ON CONFLICT (sheet_id) DO UPDATE SET data = EXCLUDED.data`, ev.SheetID, raw)
	return err
}

func (p *PostgresStore) GetEvaluation(ctx context.Context, sheetID string) (*core.Evaluation, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx, `SELECT data FROM evaluation_results WHERE sheet_id = $1`, sheetID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewError(core.KindNotFound, fmt.Sprintf("evaluation for sheet %s not found", sheetID))
	}
	if err != nil {
		return nil, core.WrapError(core.KindPersistenceFailed, "load evaluation", err)
	}
	var ev core.Evaluation
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (p *PostgresStore) SaveResult(ctx context.Context, r core.Result) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO results (sheet_id, roll_number, data) VALUES ($1,$2,$3)
		ON CONFLICT (sheet_id) DO UPDATE SET data = EXCLUDED.data`, r.SheetID, r.RollNumber, raw)
	return err
}

func (p *PostgresStore) GetResultByRoll(ctx context.Context, rollNumber string) (*core.Result, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx, `SELECT data FROM results WHERE roll_number = $1`, rollNumber).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewError(core.KindNotFound, fmt.Sprintf("result for roll number %s not found", rollNumber))
	}
	if err != nil {
		return nil, core.WrapError(core.KindPersistenceFailed, "load result", err)
	}
	var r core.Result
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

var _ core.BlockStore = (*PostgresStore)(nil)
var _ core.Repository = (*PostgresStore)(nil)
