// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package history persists conversation turns, anonymous intent telemetry,
// and life-skill recommendations in Postgres.
//
// Writes on the chat path are asynchronous: AppendTurn and LogIntent enqueue
// onto a buffered channel drained by a single worker goroutine, so a slow or
// down database can never delay a response. Reads (RecentTurns,
// DeleteHistory) are synchronous because the caller needs the result.
package history

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"

	"github.com/kazipath/kazipath/services/assistant/datatypes"
)

var historyTracer = otel.Tracer("kazipath.assistant.history")

// DefaultQueueSize bounds the async write queue. When the queue is full the
// write is dropped and logged; history is best-effort by design.
const DefaultQueueSize = 256

// writeTimeout bounds each individual worker write so one stuck statement
// cannot stall the whole queue.
const writeTimeout = 5 * time.Second

// writeOp is one queued asynchronous write.
type writeOp struct {
	kind   string // "turn" or "intent"
	turn   datatypes.ChatTurn
	hash   string
	intent datatypes.IntentType
}

// Store is the Postgres-backed history and telemetry store.
type Store struct {
	pool  *pgxpool.Pool
	queue chan writeOp

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// NewStore wraps an existing pgx pool. Call Start before enqueueing writes
// and Close during shutdown to drain the queue.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:  pool,
		queue: make(chan writeOp, DefaultQueueSize),
		done:  make(chan struct{}),
	}
}

// Start launches the single writer goroutine. Safe to call once.
func (s *Store) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

// Close stops accepting writes, drains what is already queued, and returns
// once the worker has exited.
func (s *Store) Close() {
	s.stopOnce.Do(func() {
		close(s.queue)
	})
	<-s.done
}

// run drains the queue until Close. Failures are logged and dropped; there
// is no retry, because a turn that failed to persist is worth less than a
// response that arrived on time.
func (s *Store) run() {
	defer close(s.done)
	for op := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		var err error
		switch op.kind {
		case "turn":
			err = s.insertTurn(ctx, op.turn)
		case "intent":
			err = s.insertIntentLog(ctx, op.hash, op.intent)
		}
		cancel()
		if err != nil {
			slog.Warn("Async history write failed", "kind", op.kind, "error", err)
		}
	}
}

// enqueue adds an op without ever blocking the caller.
func (s *Store) enqueue(op writeOp) {
	select {
	case s.queue <- op:
	default:
		slog.Warn("History write queue full, dropping write", "kind", op.kind)
	}
}

// AppendTurn queues one conversation turn for persistence. Fire-and-forget.
func (s *Store) AppendTurn(turn datatypes.ChatTurn) {
	s.enqueue(writeOp{kind: "turn", turn: turn})
}

// LogIntent queues one anonymous intent observation. The identity is hashed
// before it ever enters the queue, so raw user ids never reach the
// telemetry table.
func (s *Store) LogIntent(identity string, intent datatypes.IntentType) {
	s.enqueue(writeOp{kind: "intent", hash: HashIdentity(identity), intent: intent})
}

// HashIdentity returns the hex SHA-256 of an identity string. Stable across
// restarts so per-user abuse patterns remain visible without storing PII.
func HashIdentity(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:])
}

func (s *Store) insertTurn(ctx context.Context, turn datatypes.ChatTurn) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_turns (id, owner_id, role, content, intent, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)`,
		turn.ID, turn.OwnerID, turn.Role, turn.Content, string(turn.Intent), turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert chat turn: %w", err)
	}
	return nil
}

func (s *Store) insertIntentLog(ctx context.Context, identityHash string, intent datatypes.IntentType) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO intent_logs (identity_hash, intent, observed_at)
		 VALUES ($1, $2, $3)`,
		identityHash, string(intent), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert intent log: %w", err)
	}
	return nil
}

// RecordRecommendation persists one life-skill recommendation. Idempotent:
// re-recommending the same skill to the same owner is a no-op success.
// Synchronous — the tool executor decides how to treat failures.
func (s *Store) RecordRecommendation(ctx context.Context, ownerID, skillKey, reason string) error {
	ctx, span := historyTracer.Start(ctx, "Store.RecordRecommendation")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO life_skill_recommendations (owner_id, skill_key, reason, recommended_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (owner_id, skill_key) DO NOTHING`,
		ownerID, skillKey, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record recommendation: %w", err)
	}
	return nil
}

// RecentTurns returns up to n of the owner's most recent turns. With asc
// true the result is oldest-first (prompt assembly order); otherwise
// newest-first (display order).
func (s *Store) RecentTurns(ctx context.Context, ownerID string, n int, asc bool) ([]datatypes.ChatTurn, error) {
	ctx, span := historyTracer.Start(ctx, "Store.RecentTurns")
	defer span.End()

	if n <= 0 {
		n = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, role, content, COALESCE(intent, ''), created_at
		 FROM chat_turns
		 WHERE owner_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		ownerID, n)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	defer rows.Close()

	turns := make([]datatypes.ChatTurn, 0, n)
	for rows.Next() {
		var t datatypes.ChatTurn
		var intent string
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Role, &t.Content, &intent, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat turn: %w", err)
		}
		t.Intent = datatypes.IntentType(intent)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat turns: %w", err)
	}

	if asc {
		for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
			turns[i], turns[j] = turns[j], turns[i]
		}
	}
	return turns, nil
}

// DeleteHistory removes every turn the owner has, returning how many rows
// went away. Recommendations and anonymous telemetry are not touched.
func (s *Store) DeleteHistory(ctx context.Context, ownerID string) (int64, error) {
	ctx, span := historyTracer.Start(ctx, "Store.DeleteHistory")
	defer span.End()

	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_turns WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete history: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping reports database reachability for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
