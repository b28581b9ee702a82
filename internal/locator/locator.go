package locator

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/samber/lo"

	"edb-forensics/internal/domain"
)

// chatDataDir はユーザーディレクトリ内のチャットデータ置き場。
const chatDataDir = "chat_data"

// FileLocator はユーザー基底ディレクトリから暗号化チャットログを探す。
type FileLocator struct {
	baseDir string
}

// NewFileLocator は新しいFileLocatorを生成する。
func NewFileLocator(baseDir string) *FileLocator {
	return &FileLocator{baseDir: baseDir}
}

// HashedUserDir はユーザーIDのSHA-1から求めたユーザーディレクトリ名を返す。
func HashedUserDir(userID string) string {
	sum := sha1.Sum([]byte(userID))
	return hex.EncodeToString(sum[:])
}

// Locate はユーザーのチャットログ候補を返す。
// ハッシュ名のディレクトリが無いか、そこに候補が無ければ全ユーザーディレクトリを走査する。
func (l *FileLocator) Locate(ctx context.Context, userID string) ([]domain.EncryptedArtifact, error) {
	hashed := filepath.Join(l.baseDir, HashedUserDir(userID))

	var artifacts []domain.EncryptedArtifact
	if isDir(hashed) {
		artifacts = scanDirs(ctx, candidateDirs(hashed))
	}

	if len(artifacts) == 0 {
		slog.InfoContext(ctx, "no artifact in hashed user directory, scanning all users",
			"operation", "locate",
			"dir", hashed,
		)
		entries, err := os.ReadDir(l.baseDir)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrIO, l.baseDir, err)
		}
		subdirs := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
			return filepath.Join(l.baseDir, e.Name()), e.IsDir()
		})
		artifacts = scanDirs(ctx, lo.FlatMap(subdirs, func(d string, _ int) []string { return candidateDirs(d) }))
	}

	if len(artifacts) == 0 {
		return nil, fmt.Errorf("%w: no chatLogs_<id>.edb for user %q under %s", domain.ErrFileNotFound, userID, l.baseDir)
	}
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Path < artifacts[j].Path })
	return artifacts, nil
}

// scanDirs は各ディレクトリを走査して候補をまとめる。読めないディレクトリは飛ばす。
func scanDirs(ctx context.Context, dirs []string) []domain.EncryptedArtifact {
	var artifacts []domain.EncryptedArtifact
	for _, dir := range lo.Uniq(dirs) {
		found, err := scanDir(dir)
		if err != nil {
			slog.WarnContext(ctx, "failed to scan candidate directory",
				"operation", "locate",
				"dir", dir,
				"error", err,
			)
			continue
		}
		artifacts = append(artifacts, found...)
	}
	return artifacts
}

// candidateDirs はユーザーディレクトリ自身とchat_dataのうち存在するものを返す。
func candidateDirs(userDir string) []string {
	return lo.Filter([]string{filepath.Join(userDir, chatDataDir), userDir}, func(d string, _ int) bool {
		return isDir(d)
	})
}

func scanDir(dir string) ([]domain.EncryptedArtifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var artifacts []domain.EncryptedArtifact
	for _, e := range entries {
		if e.IsDir() || !IsArtifactName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		artifacts = append(artifacts, domain.EncryptedArtifact{
			Path:     filepath.Join(dir, e.Name()),
			ByteSize: info.Size(),
		})
	}
	return artifacts, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
