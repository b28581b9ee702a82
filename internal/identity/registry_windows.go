//go:build windows

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sys/windows/registry"

	"edb-forensics/internal/domain"
)

// deviceInfoPath はHKEY_CURRENT_USER配下のKakaoTalk識別情報キー。
const deviceInfoPath = `Software\Kakao\KakaoTalk\DeviceInfo`

// OSProvider はWindowsレジストリから識別情報を読む。
type OSProvider struct{}

// NewOSProvider は新しいOSProviderを生成する。
func NewOSProvider() *OSProvider {
	return &OSProvider{}
}

// Fingerprint はDeviceInfo配下の日付キーを順に読み、三つ組が揃ったものを返す。
func (p *OSProvider) Fingerprint(ctx context.Context) (domain.SystemFingerprint, error) {
	root, err := registry.OpenKey(registry.CURRENT_USER, deviceInfoPath, registry.READ)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return domain.SystemFingerprint{}, fmt.Errorf("%w: HKCU\\%s", domain.ErrIdentityUnavailable, deviceInfoPath)
		}
		return domain.SystemFingerprint{}, fmt.Errorf("%w: opening HKCU\\%s: %v", domain.ErrIO, deviceInfoPath, err)
	}
	defer root.Close()

	names, err := root.ReadSubKeyNames(0)
	if err != nil {
		return domain.SystemFingerprint{}, fmt.Errorf("%w: listing device info sections: %v", domain.ErrParse, err)
	}

	sections := make([]section, 0, len(names))
	for _, name := range names {
		values, err := readSection(root, name)
		if err != nil {
			slog.WarnContext(ctx, "skipping unreadable device info section",
				"operation", "read_identity",
				"section", name,
				"error", err,
			)
			continue
		}
		sections = append(sections, section{name: name, values: values})
	}

	fp, name, err := selectFingerprint(sections)
	if err != nil {
		return fp, err
	}
	slog.DebugContext(ctx, "identity section selected",
		"operation", "read_identity",
		"section", name,
	)
	return fp, nil
}

func readSection(root registry.Key, name string) (map[string]string, error) {
	k, err := registry.OpenKey(root, name, registry.QUERY_VALUE)
	if err != nil {
		return nil, err
	}
	defer k.Close()

	values := make(map[string]string, 3)
	for _, v := range []string{ValueUUID, ValueModel, ValueSerial} {
		s, _, err := k.GetStringValue(v)
		if err != nil {
			continue
		}
		values[v] = s
	}
	return values, nil
}
