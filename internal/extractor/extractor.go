// Package extractor は復号済みバッファをSQLiteとして開き、チャット行を取り出す。
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"edb-forensics/internal/domain"
)

// OpenFunc はSQLiteファイルをgormで開く関数。
type OpenFunc func(path string) (*gorm.DB, error)

// MessageExtractor は復号済みバッファからメッセージを抽出する。
type MessageExtractor struct {
	open    OpenFunc
	limit   int
	tempDir string
}

// NewMessageExtractor は新しいMessageExtractorを生成する。
// limit は返す最大行数、tempDir が空ならOSの一時ディレクトリを使う。
func NewMessageExtractor(open OpenFunc, limit int, tempDir string) *MessageExtractor {
	return &MessageExtractor{open: open, limit: limit, tempDir: tempDir}
}

// Extract はバッファを一時ファイルに書き出してSQLiteとして開き、新しい順にメッセージを返す。
// 一時ファイルはどの経路でも削除を試みる。既知のテーブルが無い場合は空のスライスを返す。
func (e *MessageExtractor) Extract(ctx context.Context, decrypted []byte) ([]domain.ExtractedMessage, error) {
	path, err := writeTemp(e.tempDir, decrypted)
	if err != nil {
		return nil, fmt.Errorf("%w: creating temp database: %v", domain.ErrDecryption, err)
	}
	defer removeQuietly(path)

	db, err := e.open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening decrypted database: %v", domain.ErrDecryption, err)
	}
	defer closeQuietly(db)

	// 実際にページを読ませて壊れたファイルをここで弾く
	var tables int64
	if err := db.WithContext(ctx).Raw("SELECT count(*) FROM sqlite_master").Scan(&tables).Error; err != nil {
		return nil, fmt.Errorf("%w: decrypted buffer is not a valid database: %v", domain.ErrDecryption, err)
	}

	for _, v := range schemaVariants {
		msgs, ok := e.queryVariant(ctx, db, v)
		if !ok {
			continue
		}
		slog.InfoContext(ctx, "messages extracted",
			"operation", "extract",
			"schema", v.name,
			"count", len(msgs),
		)
		return msgs, nil
	}

	slog.WarnContext(ctx, "no known chat table in decrypted database",
		"operation", "extract",
		"tables", tables,
	)
	return []domain.ExtractedMessage{}, nil
}

func (e *MessageExtractor) queryVariant(ctx context.Context, db *gorm.DB, v schemaVariant) ([]domain.ExtractedMessage, bool) {
	var names []string
	if err := db.WithContext(ctx).Raw("SELECT name FROM pragma_table_info(?)", v.table).Scan(&names).Error; err != nil {
		slog.DebugContext(ctx, "table info query failed", "operation", "extract", "schema", v.name, "error", err)
		return nil, false
	}
	cols := make(map[string]bool, len(names))
	for _, n := range names {
		cols[n] = true
	}
	if !cols[v.content] {
		return nil, false
	}
	// 最小構成以外は行IDカラムでスキーマを識別する
	if !v.implicitRowID && !cols[v.id] {
		return nil, false
	}

	var selects []string
	pick := func(column, alias string) {
		if column != "" && cols[column] {
			selects = append(selects, quoteIdent(column)+" AS "+alias)
		}
	}
	if v.implicitRowID {
		selects = append(selects, "rowid AS id")
	} else {
		pick(v.id, "id")
	}
	pick(v.sender, "sender")
	pick(v.content, "content")
	pick(v.timestamp, "ts")
	pick(v.msgType, "msg_type")

	q := db.WithContext(ctx).Table(v.table).Select(strings.Join(selects, ", "))
	switch {
	case v.timestamp != "" && cols[v.timestamp]:
		q = q.Order(quoteIdent(v.timestamp) + " DESC")
	case v.implicitRowID:
		q = q.Order("rowid DESC")
	default:
		q = q.Order(quoteIdent(v.id) + " DESC")
	}
	if e.limit > 0 {
		q = q.Limit(e.limit)
	}

	var rows []map[string]any
	if err := q.Find(&rows).Error; err != nil {
		slog.DebugContext(ctx, "schema variant query failed", "operation", "extract", "schema", v.name, "error", err)
		return nil, false
	}

	msgs := make([]domain.ExtractedMessage, len(rows))
	for i, row := range rows {
		id := asString(row["id"])
		if id == "" {
			id = strconv.Itoa(i + 1)
		}
		msgs[i] = domain.ExtractedMessage{
			ID:          id,
			Sender:      asString(row["sender"]),
			Content:     asString(row["content"]),
			Timestamp:   asInt64(row["ts"]),
			MessageType: asInt64(row["msg_type"]),
		}
	}
	return msgs, true
}

func writeTemp(dir string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "edb-dec-*.sqlite")
	if err != nil {
		return "", err
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		removeQuietly(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		removeQuietly(path)
		return "", err
	}
	return path, nil
}

func removeQuietly(path string) {
	for _, p := range []string{path, path + "-journal", path + "-wal", path + "-shm"} {
		_ = os.Remove(p)
	}
}

func closeQuietly(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n
	case []byte:
		n, _ := strconv.ParseInt(strings.TrimSpace(string(t)), 10, 64)
		return n
	case time.Time:
		return t.Unix()
	default:
		return 0
	}
}
