package identity

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/tidwall/gjson"

	"edb-forensics/internal/domain"
)

// FixtureProvider はレジストリと同じ木構造のJSONファイルから識別情報を読む。
//
//	{"DeviceInfo": {"20240101-093000": {"sys_uuid": "...", "hdd_model": "...", "hdd_serial": "..."}}}
type FixtureProvider struct {
	path string
}

// NewFixtureProvider は新しいFixtureProviderを生成する。
func NewFixtureProvider(path string) *FixtureProvider {
	return &FixtureProvider{path: path}
}

// Fingerprint はフィクスチャから最初に揃った三つ組を返す。
func (p *FixtureProvider) Fingerprint(ctx context.Context) (domain.SystemFingerprint, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.SystemFingerprint{}, fmt.Errorf("%w: %s", domain.ErrIdentityUnavailable, p.path)
		}
		return domain.SystemFingerprint{}, fmt.Errorf("%w: reading identity fixture %q: %v", domain.ErrIO, p.path, err)
	}
	return fingerprintFromJSON(ctx, data)
}

func fingerprintFromJSON(ctx context.Context, data []byte) (domain.SystemFingerprint, error) {
	if !gjson.ValidBytes(data) {
		return domain.SystemFingerprint{}, fmt.Errorf("%w: identity fixture is not valid JSON", domain.ErrParse)
	}

	deviceInfo := gjson.GetBytes(data, "DeviceInfo")
	if !deviceInfo.IsObject() {
		return domain.SystemFingerprint{}, fmt.Errorf("%w: DeviceInfo", domain.ErrIdentityUnavailable)
	}

	var sections []section
	deviceInfo.ForEach(func(name, entry gjson.Result) bool {
		if !entry.IsObject() {
			return true
		}
		values := make(map[string]string, 3)
		entry.ForEach(func(k, v gjson.Result) bool {
			if v.Type == gjson.String {
				values[k.String()] = v.String()
			}
			return true
		})
		sections = append(sections, section{name: name.String(), values: values})
		return true
	})

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
