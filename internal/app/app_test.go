package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"edb-forensics/config"
	"edb-forensics/internal/domain"
	"edb-forensics/internal/edbcrypto"
	"edb-forensics/internal/identity"
	"edb-forensics/internal/infra"
	"edb-forensics/internal/repository"
)

func TestNew_WithCaseStore(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		UsersDir:        dir,
		LoginListPath:   filepath.Join(dir, "login_list.dat"),
		IdentityFixture: filepath.Join(dir, "identity.json"),
		MessageLimit:    10,
		CaseDBPath:      filepath.Join(dir, "case.db"),
	}

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	db, err := infra.NewDB(cfg.CaseDBPath, false)
	if err != nil {
		t.Fatal(err)
	}
	defer infra.CloseDB(db)
	if !db.Migrator().HasTable(&repository.RecoveredKeyModel{}) {
		t.Error("expected recovered_keys table to be created")
	}
}

func TestNew_FixtureIdentityIsUsed(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "identity.json")
	if err := os.WriteFile(fixture, []byte(`{"DeviceInfo":{"20240101":{"sys_uuid":"A","hdd_model":"B","hdd_serial":"C"}}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{UsersDir: dir, IdentityFixture: fixture, MessageLimit: 10}

	if _, ok := identityProvider(cfg).(*identity.FixtureProvider); !ok {
		t.Fatal("expected fixture provider")
	}

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	// ヘッダが合わなければ空のスライス、識別情報は読めている
	path := filepath.Join(dir, "chatLogs_3.edb")
	if err := os.WriteFile(path, make([]byte, 2*edbcrypto.ChunkSize), 0o600); err != nil {
		t.Fatal(err)
	}
	msgs, err := a.Service.DecryptFull(context.Background(), path, "test@example.com")
	if err != nil {
		t.Fatalf("DecryptFull failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected no messages, got %d", len(msgs))
	}
}

func TestNew_MissingFixture(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{UsersDir: dir, IdentityFixture: filepath.Join(dir, "none.json"), MessageLimit: 10}

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	path := filepath.Join(dir, "chatLogs_3.edb")
	if err := os.WriteFile(path, make([]byte, 32), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Service.DecryptFull(context.Background(), path, "test@example.com"); !errors.Is(err, domain.ErrIdentityUnavailable) {
		t.Errorf("expected ErrIdentityUnavailable, got %v", err)
	}
}
