package identity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"edb-forensics/internal/domain"
)

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "identity.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestFixtureProvider_FirstCompleteSection(t *testing.T) {
	path := writeFixture(t, `{
		"DeviceInfo": {
			"20230105-101010": {"sys_uuid": "OLD-UUID", "hdd_model": "OLD", "hdd_serial": "OLD-SN"},
			"20240320-080000": {"sys_uuid": "NEW-UUID", "hdd_model": "Samsung SSD"},
			"20231111-111111": {"sys_uuid": "MID-UUID", "hdd_model": "WDC", "hdd_serial": "WD-123"}
		}
	}`)

	fp, err := NewFixtureProvider(path).Fingerprint(context.Background())
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}

	// 最新セクションは不完全なので次に新しいものが選ばれる
	want := domain.SystemFingerprint{UUID: "MID-UUID", ModelName: "WDC", SerialNumber: "WD-123"}
	if fp != want {
		t.Errorf("want %+v, got %+v", want, fp)
	}
}

func TestFixtureProvider_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"invalid json", `{"DeviceInfo": `, domain.ErrParse},
		{"missing device info", `{"Other": {}}`, domain.ErrIdentityUnavailable},
		{"no complete section", `{"DeviceInfo": {"a": {"sys_uuid": "x"}, "b": {"hdd_model": "y", "hdd_serial": "z"}}}`, domain.ErrDecryption},
		{"non-string values ignored", `{"DeviceInfo": {"a": {"sys_uuid": 1, "hdd_model": "y", "hdd_serial": "z"}}}`, domain.ErrDecryption},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewFixtureProvider(writeFixture(t, tc.content)).Fingerprint(context.Background())
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFixtureProvider_MissingFile(t *testing.T) {
	_, err := NewFixtureProvider(filepath.Join(t.TempDir(), "nope.json")).Fingerprint(context.Background())
	if !errors.Is(err, domain.ErrIdentityUnavailable) {
		t.Fatalf("want ErrIdentityUnavailable, got %v", err)
	}
}

func TestStatic(t *testing.T) {
	want := domain.SystemFingerprint{UUID: "A", ModelName: "B", SerialNumber: "C"}
	got, err := Static(want).Fingerprint(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("want %+v, got %+v", want, got)
	}
}
