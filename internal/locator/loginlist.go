package locator

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"

	"edb-forensics/internal/domain"
)

const loginListPrefix = "login_list|"

var (
	emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^01[0-9]{9}$`)
)

// IsValidUserID はメールアドレスか 01 で始まる11桁の携帯番号かを返す。
func IsValidUserID(id string) bool {
	return emailRegex.MatchString(id) || phoneRegex.MatchString(id)
}

// LoginListReader はlogin_list.datからログインユーザーIDを読み、プロセス内でキャッシュする。
type LoginListReader struct {
	path string

	mu     sync.Mutex
	cached string
}

// NewLoginListReader は新しいLoginListReaderを生成する。
func NewLoginListReader(path string) *LoginListReader {
	return &LoginListReader{path: path}
}

// UserID は最初に有効なIDを持つ login_list|<id> 行のIDを返す。
// 一度読めた値は以後ファイルを読まずに返す。
func (r *LoginListReader) UserID(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != "" {
		return r.cached, nil
	}

	f, err := os.Open(r.path)
	if err != nil {
		return "", fmt.Errorf("%w: opening login list %s: %v", domain.ErrIO, r.path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		id, ok := strings.CutPrefix(line, loginListPrefix)
		if !ok {
			continue
		}
		id = strings.TrimSpace(id)
		if IsValidUserID(id) {
			r.cached = id
			slog.DebugContext(ctx, "user id resolved from login list",
				"operation", "get_user_id",
				"path", r.path,
			)
			return id, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("%w: reading login list %s: %v", domain.ErrIO, r.path, err)
	}
	return "", fmt.Errorf("%w: no valid login_list entry in %s", domain.ErrParse, r.path)
}
