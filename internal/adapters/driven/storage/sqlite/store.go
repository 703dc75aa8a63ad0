package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/askdb-core/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/askdb-core/internal/core/domain"
	"github.com/custodia-labs/askdb-core/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// the chunk, graph, vector and conversation interfaces through
// wrapper types sharing one connection.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.askdb/data/index.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".askdb", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "index.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// DependencyGraph returns a DependencyGraph interface backed by this store.
func (s *Store) DependencyGraph() driven.DependencyGraph {
	return &chunkStore{store: s}
}

// VectorIndex returns a MutableVectorIndex interface backed by this store.
func (s *Store) VectorIndex() driven.MutableVectorIndex {
	return &vectorIndex{store: s}
}

// ConversationStore returns a ConversationStore interface backed by this store.
func (s *Store) ConversationStore() driven.ConversationStore {
	return &conversationStore{store: s}
}

// SaveChunks stores or updates chunks. Used by the indexing path.
func (s *Store) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	return (&chunkStore{store: s}).SaveChunks(ctx, chunks)
}

// SaveEdges replaces the outgoing dependency edges of a chunk.
func (s *Store) SaveEdges(ctx context.Context, chunkID string, dependentIDs []string) error {
	return (&chunkStore{store: s}).SaveEdges(ctx, chunkID, dependentIDs)
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore and driven.DependencyGraph.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)
var _ driven.DependencyGraph = (*chunkStore)(nil)

// SaveChunks stores or updates chunks in a single transaction.
func (s *chunkStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, source_path, text, metadata, acl_allow, classification_labels, doc_level)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_path = excluded.source_path,
			text = excluded.text,
			metadata = excluded.metadata,
			acl_allow = excluded.acl_allow,
			classification_labels = excluded.classification_labels,
			doc_level = excluded.doc_level
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}
		aclJSON, err := json.Marshal(chunk.ACLAllow)
		if err != nil {
			return fmt.Errorf("marshalling acl labels: %w", err)
		}
		classJSON, err := json.Marshal(chunk.ClassificationLabels)
		if err != nil {
			return fmt.Errorf("marshalling classification labels: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.SourcePath, chunk.Text,
			string(metadataJSON), string(aclJSON), string(classJSON),
			nullInt(chunk.DocLevel)); err != nil {
			return fmt.Errorf("saving chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// SaveEdges replaces the outgoing dependency edges of a chunk.
func (s *chunkStore) SaveEdges(ctx context.Context, chunkID string, dependentIDs []string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunk_edges WHERE chunk_id = ?", chunkID); err != nil {
		return fmt.Errorf("clearing edges: %w", err)
	}
	for _, dep := range dependentIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO chunk_edges (chunk_id, dependent_id) VALUES (?, ?)",
			chunkID, dep); err != nil {
			return fmt.Errorf("saving edge: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetChunk retrieves a chunk by ID.
func (s *chunkStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, source_path, text, metadata, acl_allow, classification_labels, doc_level
		FROM chunks WHERE id = ?
	`, id)

	return scanChunkRow(row)
}

// AllChunks returns every chunk, ordered by ID.
func (s *chunkStore) AllChunks(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, source_path, text, metadata, acl_allow, classification_labels, doc_level
		FROM chunks ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// Dependents returns the IDs of chunks directly depending on the given chunk.
func (s *chunkStore) Dependents(ctx context.Context, id string) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT dependent_id FROM chunk_edges WHERE chunk_id = ? ORDER BY dependent_id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer rows.Close()

	var deps []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var dep string
		if err := rows.Scan(&dep); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		deps = append(deps, dep)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating edges: %w", err)
	}

	return deps, nil
}

// Close is a no-op; the owning Store closes the connection.
func (s *chunkStore) Close() error {
	return nil
}

// ==================== Vector Index ====================

// vectorIndex implements driven.MutableVectorIndex with a brute-force
// scan over stored embeddings, using cosine distance.
type vectorIndex struct {
	store *Store
}

var _ driven.MutableVectorIndex = (*vectorIndex)(nil)

// Add inserts a vector for the given chunk ID.
func (v *vectorIndex) Add(ctx context.Context, chunkID string, embedding []float32) error {
	if len(embedding) == 0 {
		return domain.ErrInvalidInput
	}
	_, err := v.store.db.ExecContext(ctx, `
		INSERT INTO embeddings (chunk_id, vector) VALUES (?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET vector = excluded.vector
	`, chunkID, float32SliceToBytes(embedding))
	if err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}
	return nil
}

// Delete removes a vector from the index.
func (v *vectorIndex) Delete(ctx context.Context, chunkID string) error {
	_, err := v.store.db.ExecContext(ctx, "DELETE FROM embeddings WHERE chunk_id = ?", chunkID)
	if err != nil {
		return fmt.Errorf("deleting embedding: %w", err)
	}
	return nil
}

// Search finds up to k nearest neighbours by cosine distance.
func (v *vectorIndex) Search(ctx context.Context, query []float32, k int) ([]string, []float64, error) {
	if k <= 0 {
		return nil, nil, nil
	}

	rows, err := v.store.db.QueryContext(ctx, "SELECT chunk_id, vector FROM embeddings")
	if err != nil {
		return nil, nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	type scored struct {
		id       string
		distance float64
	}
	var results []scored
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, nil, fmt.Errorf("scanning embedding: %w", err)
		}
		vec := bytesToFloat32Slice(blob)
		if len(vec) != len(query) {
			continue
		}
		results = append(results, scored{id: id, distance: cosineDistance(query, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating embeddings: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].distance != results[j].distance {
			return results[i].distance < results[j].distance
		}
		return results[i].id < results[j].id
	})
	if len(results) > k {
		results = results[:k]
	}

	ids := make([]string, len(results))
	distances := make([]float64, len(results))
	for i, r := range results {
		ids[i] = r.id
		distances[i] = r.distance
	}
	return ids, distances, nil
}

// Close is a no-op; the owning Store closes the connection.
func (v *vectorIndex) Close() error {
	return nil
}

// ==================== Conversation Store ====================

// conversationStore implements driven.ConversationStore.
type conversationStore struct {
	store *Store
}

var _ driven.ConversationStore = (*conversationStore)(nil)

// Save stores or updates a conversation.
func (s *conversationStore) Save(ctx context.Context, conv *domain.Conversation) error {
	historyJSON, err := json.Marshal(conv.History)
	if err != nil {
		return fmt.Errorf("marshalling history: %w", err)
	}

	now := time.Now().UTC()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = now

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO conversations (id, translate_chat, notice, history, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			translate_chat = excluded.translate_chat,
			notice = excluded.notice,
			history = excluded.history,
			updated_at = excluded.updated_at
	`, conv.ID, conv.TranslateChat, conv.Notice, string(historyJSON),
		conv.CreatedAt, conv.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}
	return nil
}

// Get retrieves a conversation by session ID.
func (s *conversationStore) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, translate_chat, notice, history, created_at, updated_at
		FROM conversations WHERE id = ?
	`, id)

	var conv domain.Conversation
	var historyJSON string
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&conv.ID, &conv.TranslateChat, &conv.Notice,
		&historyJSON, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}

	if err := json.Unmarshal([]byte(historyJSON), &conv.History); err != nil {
		return nil, fmt.Errorf("unmarshaling history: %w", err)
	}
	if createdAt.Valid {
		conv.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		conv.UpdatedAt = updatedAt.Time
	}

	return &conv, nil
}

// Delete removes a conversation.
func (s *conversationStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	return nil
}

// List returns all stored conversation IDs.
func (s *conversationStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT id FROM conversations ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var ids []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning conversation id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}

	return ids, nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// cosineDistance returns 1 - cosine similarity, clamped to [0, 2].
func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

// nullInt converts an optional int to a nullable SQL value.
func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

// scanner abstracts sql.Row and sql.Rows for chunk scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanChunkFields(sc scanner) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var metadataJSON, aclJSON, classJSON sql.NullString
	var docLevel sql.NullInt64

	if err := sc.Scan(&chunk.ID, &chunk.SourcePath, &chunk.Text,
		&metadataJSON, &aclJSON, &classJSON, &docLevel); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	if metadataJSON.Valid && metadataJSON.String != jsonNull {
		if err := json.Unmarshal([]byte(metadataJSON.String), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
	}
	if aclJSON.Valid && aclJSON.String != jsonNull {
		if err := json.Unmarshal([]byte(aclJSON.String), &chunk.ACLAllow); err != nil {
			return nil, fmt.Errorf("unmarshaling acl labels: %w", err)
		}
	}
	if classJSON.Valid && classJSON.String != jsonNull {
		if err := json.Unmarshal([]byte(classJSON.String), &chunk.ClassificationLabels); err != nil {
			return nil, fmt.Errorf("unmarshaling classification labels: %w", err)
		}
	}
	if docLevel.Valid {
		level := int(docLevel.Int64)
		chunk.DocLevel = &level
	}

	return &chunk, nil
}

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// scanChunk scans a chunk from a result set.
func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	return scanChunkFields(rows)
}

// scanChunkRow scans a chunk from a single-row query.
func scanChunkRow(row *sql.Row) (*domain.Chunk, error) {
	return scanChunkFields(row)
}
