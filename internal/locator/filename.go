// Package locator は暗号化チャットログとログインユーザーの探索を提供する。
package locator

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"edb-forensics/internal/domain"
)

var artifactNameRegex = regexp.MustCompile(`^chatLogs_[0-9]+\.edb$`)

// IsArtifactName はファイル名が chatLogs_<digits>.edb に一致するかを返す。
func IsArtifactName(name string) bool {
	return artifactNameRegex.MatchString(name)
}

// ValidateArtifact は入力ファイルの存在と命名規約を確認する。
func ValidateArtifact(path string) (domain.EncryptedArtifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.EncryptedArtifact{}, fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
		}
		return domain.EncryptedArtifact{}, fmt.Errorf("%w: stat %s: %v", domain.ErrIO, path, err)
	}
	if info.IsDir() {
		return domain.EncryptedArtifact{}, fmt.Errorf("%w: %s is a directory", domain.ErrFileNotFound, path)
	}
	if !IsArtifactName(filepath.Base(path)) {
		return domain.EncryptedArtifact{}, fmt.Errorf("%w: %s", domain.ErrInvalidArtifactName, filepath.Base(path))
	}
	return domain.EncryptedArtifact{Path: path, ByteSize: info.Size()}, nil
}
