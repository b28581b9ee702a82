package locator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"edb-forensics/internal/domain"
)

func writeLoginList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "login_list.dat")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoginListReader_UserID(t *testing.T) {
	path := writeLoginList(t, "version|3\nlogin_list|test@example.com\n")
	r := NewLoginListReader(path)

	id, err := r.UserID(context.Background())
	if err != nil {
		t.Fatalf("UserID failed: %v", err)
	}
	if id != "test@example.com" {
		t.Errorf("want test@example.com, got %s", id)
	}

	// 2回目はファイルを読まずにキャッシュを返す
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	id, err = r.UserID(context.Background())
	if err != nil {
		t.Fatalf("cached UserID failed: %v", err)
	}
	if id != "test@example.com" {
		t.Errorf("want cached test@example.com, got %s", id)
	}
}

func TestLoginListReader_SkipsInvalidEntries(t *testing.T) {
	path := writeLoginList(t, "\ufefflogin_list|not-an-id\r\nlogin_list|0212345678\r\nlogin_list|01012345678\r\n")

	id, err := NewLoginListReader(path).UserID(context.Background())
	if err != nil {
		t.Fatalf("UserID failed: %v", err)
	}
	if id != "01012345678" {
		t.Errorf("want 01012345678, got %s", id)
	}
}

func TestLoginListReader_Errors(t *testing.T) {
	_, err := NewLoginListReader(filepath.Join(t.TempDir(), "missing.dat")).UserID(context.Background())
	if !errors.Is(err, domain.ErrIO) {
		t.Errorf("want ErrIO, got %v", err)
	}

	_, err = NewLoginListReader(writeLoginList(t, "login_list|nobody\n")).UserID(context.Background())
	if !errors.Is(err, domain.ErrParse) {
		t.Errorf("want ErrParse, got %v", err)
	}
}

func TestIsValidUserID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"test@example.com", true},
		{"first.last+tag@mail.co.kr", true},
		{"01012345678", true},
		{"0101234567", false},
		{"02012345678", false},
		{"010-1234-5678", false},
		{"user@", false},
		{"", false},
	}
	for _, tc := range tests {
		t.Run(tc.id, func(t *testing.T) {
			if got := IsValidUserID(tc.id); got != tc.want {
				t.Errorf("IsValidUserID(%q) = %v, want %v", tc.id, got, tc.want)
			}
		})
	}
}
