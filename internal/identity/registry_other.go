//go:build !windows

package identity

import (
	"context"
	"fmt"
	"runtime"

	"edb-forensics/internal/domain"
)

// OSProvider はWindows以外では識別情報ストアを持たない。
// KAKAO_IDENTITY_FIXTURE でフィクスチャを指定して使う。
type OSProvider struct{}

// NewOSProvider は新しいOSProviderを生成する。
func NewOSProvider() *OSProvider {
	return &OSProvider{}
}

// Fingerprint は常にErrIdentityUnavailableを返す。
func (p *OSProvider) Fingerprint(ctx context.Context) (domain.SystemFingerprint, error) {
	return domain.SystemFingerprint{}, fmt.Errorf("%w: no KakaoTalk device info store on %s",
		domain.ErrIdentityUnavailable, runtime.GOOS)
}
