// Package database 保存上传的文档与合成记录（SQLite）。
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/iabetor/mathspeech/internal/logger"
)

// ErrNotFound 表示记录不存在。
var ErrNotFound = errors.New("record not found")

// DB 是统一的 SQLite 数据库连接。
type DB struct {
	*sql.DB
	path string
}

// Document 是一份上传的 PDF 及其提取结果。
type Document struct {
	ID            string    `json:"id"`
	FileName      string    `json:"fileName"`
	Size          int64     `json:"size"`
	PageCount     int       `json:"pages"`
	TextChars     int       `json:"textChars"`
	Text          string    `json:"text,omitempty"`
	ProcessedText string    `json:"processedText,omitempty"`
	PDFPath       string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Synthesis 是一次成功的语音合成记录。
type Synthesis struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId,omitempty"`
	VoiceID    string    `json:"voiceId"`
	Language   string    `json:"language"`
	TextChars  int       `json:"textChars"`
	CacheKey   string    `json:"cacheKey"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Open 打开或创建数据库。
// dbPath 为空时使用 ~/.mathspeech/mathspeech.db
func Open(dbPath string) (*DB, error) {
	if dbPath == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			dbPath = filepath.Join(home, ".mathspeech", "mathspeech.db")
		} else {
			dbPath = "./mathspeech.db"
		}
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("[database] 创建数据库目录失败: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("[database] 打开数据库失败: %w", err)
	}

	// PRAGMA 只作用于单个连接，限制为一个连接保证外键约束始终生效
	db.SetMaxOpenConns(1)

	// 设置 WAL 模式（更好的并发性能）
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("[database] 设置 WAL 模式失败: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("[database] 启用外键约束失败: %w", err)
	}

	logger.Infof("[database] 数据库已打开: %s", dbPath)
	return &DB{DB: db, path: dbPath}, nil
}

// Path 返回数据库文件路径。
func (db *DB) Path() string {
	return db.path
}

// Migrate 运行数据库迁移。
func (db *DB) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL,
			size INTEGER DEFAULT 0,
			page_count INTEGER DEFAULT 0,
			text_chars INTEGER DEFAULT 0,
			text TEXT NOT NULL DEFAULT '',
			processed_text TEXT NOT NULL DEFAULT '',
			pdf_path TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS syntheses (
			id TEXT PRIMARY KEY,
			document_id TEXT REFERENCES documents(id) ON DELETE SET NULL,
			voice_id TEXT NOT NULL,
			language TEXT NOT NULL,
			text_chars INTEGER DEFAULT 0,
			cache_key TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("[database] 数据库迁移失败: %w", err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_syntheses_document ON syntheses(document_id)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			logger.Warnf("[database] 创建索引失败: %v", err)
		}
	}

	logger.Info("[database] 数据库迁移完成")
	return nil
}

// InsertDocument 保存文档，ID 与创建时间为空时自动生成。
func (db *DB) InsertDocument(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, `INSERT INTO documents
		(id, file_name, size, page_count, text_chars, text, processed_text, pdf_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.FileName, doc.Size, doc.PageCount, doc.TextChars,
		doc.Text, doc.ProcessedText, doc.PDFPath, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("[database] 保存文档失败: %w", err)
	}
	return nil
}

// GetDocument 按 ID 读取文档（含全文）。
func (db *DB) GetDocument(ctx context.Context, id string) (*Document, error) {
	var d Document
	err := db.QueryRowContext(ctx, `SELECT id, file_name, size, page_count, text_chars,
		text, processed_text, pdf_path, created_at FROM documents WHERE id = ?`, id).
		Scan(&d.ID, &d.FileName, &d.Size, &d.PageCount, &d.TextChars,
			&d.Text, &d.ProcessedText, &d.PDFPath, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[database] 查询文档失败: %w", err)
	}
	return &d, nil
}

// SetProcessedText 更新文档的改写结果。
func (db *DB) SetProcessedText(ctx context.Context, id, text string) error {
	result, err := db.ExecContext(ctx, "UPDATE documents SET processed_text = ? WHERE id = ?", text, id)
	if err != nil {
		return fmt.Errorf("[database] 更新文档失败: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDocuments 按创建时间倒序列出文档，不含全文。limit <= 0 表示不限制。
func (db *DB) ListDocuments(ctx context.Context, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, `SELECT id, file_name, size, page_count, text_chars, pdf_path, created_at
		FROM documents ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("[database] 查询文档列表失败: %w", err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.FileName, &d.Size, &d.PageCount, &d.TextChars, &d.PDFPath, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("[database] 读取文档失败: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// InsertSynthesis 保存合成记录。
func (db *DB) InsertSynthesis(ctx context.Context, s *Synthesis) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	var docID interface{}
	if s.DocumentID != "" {
		docID = s.DocumentID
	}
	_, err := db.ExecContext(ctx, `INSERT INTO syntheses
		(id, document_id, voice_id, language, text_chars, cache_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, docID, s.VoiceID, s.Language, s.TextChars, s.CacheKey, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("[database] 保存合成记录失败: %w", err)
	}
	return nil
}

// ListSyntheses 列出某个文档的合成记录，documentID 为空时列出全部。
func (db *DB) ListSyntheses(ctx context.Context, documentID string) ([]Synthesis, error) {
	query := `SELECT id, COALESCE(document_id, ''), voice_id, language, text_chars, cache_key, created_at
		FROM syntheses`
	var args []interface{}
	if documentID != "" {
		query += ` WHERE document_id = ?`
		args = append(args, documentID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("[database] 查询合成记录失败: %w", err)
	}
	defer rows.Close()

	out := make([]Synthesis, 0)
	for rows.Next() {
		var s Synthesis
		if err := rows.Scan(&s.ID, &s.DocumentID, &s.VoiceID, &s.Language, &s.TextChars, &s.CacheKey, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("[database] 读取合成记录失败: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close 关闭数据库连接。
func (db *DB) Close() error {
	if db.DB != nil {
		return db.DB.Close()
	}
	return nil
}
