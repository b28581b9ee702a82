package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"edb-forensics/internal/domain"
	"edb-forensics/internal/identity"
	"edb-forensics/internal/progress"
	"edb-forensics/internal/search"
	"edb-forensics/internal/usecase"
)

// mockExtractor はテスト用のモック抽出器。
type mockExtractor struct {
	msgs []domain.ExtractedMessage
}

func (m *mockExtractor) Extract(ctx context.Context, decrypted []byte) ([]domain.ExtractedMessage, error) {
	return m.msgs, nil
}

// mockLocator はテスト用のモックロケータ。
type mockLocator struct {
	artifacts []domain.EncryptedArtifact
	err       error
}

func (m *mockLocator) Locate(ctx context.Context, userID string) ([]domain.EncryptedArtifact, error) {
	return m.artifacts, m.err
}

// mockIdentity はテスト用のモック識別情報プロバイダ。
type mockIdentity struct {
	err error
}

func (m mockIdentity) Fingerprint(ctx context.Context) (domain.SystemFingerprint, error) {
	if m.err != nil {
		return domain.SystemFingerprint{}, m.err
	}
	return domain.SystemFingerprint{UUID: "A", ModelName: "B", SerialNumber: "C"}, nil
}

type staticUser string

func (s staticUser) UserID(ctx context.Context) (string, error) { return string(s), nil }

func newTestRouter(t *testing.T, loc *mockLocator) (http.Handler, *progress.Manager) {
	t.Helper()
	return newTestRouterWithIdentity(t, loc, identity.Static{UUID: "A", ModelName: "B", SerialNumber: "C"})
}

func newTestRouterWithIdentity(t *testing.T, loc *mockLocator, id usecase.IdentityProvider) (http.Handler, *progress.Manager) {
	t.Helper()
	pm := progress.NewManager()
	svc := usecase.NewDecryptService(
		id,
		loc,
		&mockExtractor{},
		search.NewSearcher(),
		pm,
		false,
	)
	return NewRouter(NewDecryptHandler(svc, pm, staticUser("test@example.com")), false), pm
}

func doRequest(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDecrypt_StatusMapping(t *testing.T) {
	dir := t.TempDir()
	badName := filepath.Join(dir, "chatLogs_abc.edb")
	if err := os.WriteFile(badName, make([]byte, 32), 0o600); err != nil {
		t.Fatal(err)
	}
	good := filepath.Join(dir, "chatLogs_7.edb")
	if err := os.WriteFile(good, make([]byte, 4096), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		identity   usecase.IdentityProvider
		body       any
		wantStatus int
		wantCode   string
	}{
		{"パス未指定", nil, map[string]string{}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"未知のフィールド", nil, map[string]string{"path": good, "tenant": "x"}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"存在しないファイル", nil, DecryptRequest{Path: filepath.Join(dir, "chatLogs_1.edb"), UserID: "u1@example.com"}, http.StatusNotFound, "FILE_NOT_FOUND"},
		{"不正なファイル名", nil, DecryptRequest{Path: badName, UserID: "u1@example.com"}, http.StatusBadRequest, "INVALID_ARTIFACT_NAME"},
		{"不正なユーザーID", nil, DecryptRequest{Path: good, UserID: "nobody"}, http.StatusBadRequest, "INVALID_USER_ID"},
		{"識別情報なし", mockIdentity{err: fmt.Errorf("%w: no device info store", domain.ErrIdentityUnavailable)},
			DecryptRequest{Path: good, UserID: "u1@example.com"}, http.StatusServiceUnavailable, "IDENTITY_UNAVAILABLE"},
		{"識別情報の読み込み失敗", mockIdentity{err: fmt.Errorf("%w: reading identity fixture", domain.ErrIO)},
			DecryptRequest{Path: good, UserID: "u1@example.com"}, http.StatusInternalServerError, "IO_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h http.Handler
			if tt.identity != nil {
				h, _ = newTestRouterWithIdentity(t, &mockLocator{}, tt.identity)
			} else {
				h, _ = newTestRouter(t, &mockLocator{})
			}
			rec := doRequest(t, h, http.MethodPost, "/v1/decrypt", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d (%s)", tt.wantStatus, rec.Code, rec.Body.String())
			}
			var resp map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp["code"] != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, resp["code"])
			}
		})
	}
}

func TestDecrypt_HeaderMismatchIsEmptyOK(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatLogs_7.edb")
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, 4096), 0o600); err != nil {
		t.Fatal(err)
	}
	h, pm := newTestRouter(t, &mockLocator{})

	// user_id省略時はlogin_listの値を使う
	rec := doRequest(t, h, http.MethodPost, "/v1/decrypt", DecryptRequest{Path: path})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var resp MessagesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 0 || resp.Artifact != "chatLogs_7.edb" {
		t.Errorf("unexpected response %+v", resp)
	}

	progressRec := doRequest(t, h, http.MethodGet, "/v1/progress", nil)
	var snap domain.AnalysisProgress
	if err := json.Unmarshal(progressRec.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap != pm.Snapshot() || snap.IsRunning || snap.RunID == "" {
		t.Errorf("unexpected progress %+v", snap)
	}
}

func TestDiscover_NoCandidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatLogs_7.edb")
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, 4096), 0o600); err != nil {
		t.Fatal(err)
	}
	h, pm := newTestRouter(t, &mockLocator{})

	rec := doRequest(t, h, http.MethodPost, "/v1/discover", DiscoverRequest{Path: path})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d (%s)", rec.Code, rec.Body.String())
	}
	if got := pm.Snapshot().CandidatesFound; got != 1 {
		t.Errorf("expected the zero key as the only candidate, got %d", got)
	}
}

func TestListArtifacts(t *testing.T) {
	t.Run("正常系", func(t *testing.T) {
		h, _ := newTestRouter(t, &mockLocator{artifacts: []domain.EncryptedArtifact{{Path: "/u/chatLogs_1.edb", ByteSize: 8192}}})
		rec := doRequest(t, h, http.MethodGet, "/v1/artifacts?user_id=01012345678", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var resp ArtifactListResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.UserID != "01012345678" || len(resp.Artifacts) != 1 || resp.Artifacts[0].ByteSize != 8192 {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("見つからない", func(t *testing.T) {
		h, _ := newTestRouter(t, &mockLocator{err: domain.ErrFileNotFound})
		rec := doRequest(t, h, http.MethodGet, "/v1/artifacts", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "FILE_NOT_FOUND") {
			t.Errorf("unexpected body %s", rec.Body.String())
		}
	})
}
