// Package handler はHTTPハンドラを提供する。
package handler

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"

	"edb-forensics/internal/domain"
	"edb-forensics/internal/middleware"
	"edb-forensics/internal/usecase"
	"edb-forensics/pkg/httputil"
)

// ProgressSource は進捗のスナップショットを返す。
type ProgressSource interface {
	Snapshot() domain.AnalysisProgress
}

// UserIDSource はリクエストにユーザーIDが無いときの既定値を返す。
type UserIDSource interface {
	UserID(ctx context.Context) (string, error)
}

// DecryptHandler は解析APIのHTTPハンドラを提供する。
type DecryptHandler struct {
	service  *usecase.DecryptService
	progress ProgressSource
	users    UserIDSource
}

// NewDecryptHandler は新しいDecryptHandlerを生成する。
func NewDecryptHandler(service *usecase.DecryptService, progress ProgressSource, users UserIDSource) *DecryptHandler {
	return &DecryptHandler{service: service, progress: progress, users: users}
}

// DecryptRequest は復号リクエストの形式。
type DecryptRequest struct {
	Path   string `json:"path"`
	UserID string `json:"user_id"`
}

// DiscoverRequest は鍵候補探索リクエストの形式。
type DiscoverRequest struct {
	Path string `json:"path"`
}

// MessagesResponse はメッセージ一覧のレスポンス形式。
type MessagesResponse struct {
	Artifact string                    `json:"artifact"`
	Count    int                       `json:"count"`
	Messages []domain.ExtractedMessage `json:"messages"`
}

// DiscoverResponse は探索結果のレスポンス形式。鍵そのものは返さない。
type DiscoverResponse struct {
	Artifact   string                    `json:"artifact"`
	Source     string                    `json:"source"`
	Confidence int                       `json:"confidence"`
	Attempts   int                       `json:"attempts"`
	StoredKeys int64                     `json:"stored_keys"`
	Messages   []domain.ExtractedMessage `json:"messages"`
}

// ArtifactResponse は暗号化ファイルのレスポンス形式。
type ArtifactResponse struct {
	Path     string `json:"path"`
	ByteSize int64  `json:"byte_size"`
}

// ArtifactListResponse は暗号化ファイル一覧のレスポンス形式。
type ArtifactListResponse struct {
	UserID    string             `json:"user_id"`
	Artifacts []ArtifactResponse `json:"artifacts"`
}

// GetProgress は現在の進捗を返す。
func (h *DecryptHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, h.progress.Snapshot())
}

// Decrypt はファイルを主経路で復号する。
func (h *DecryptHandler) Decrypt(w http.ResponseWriter, r *http.Request) {
	var req DecryptRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil || req.Path == "" {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "path is required")
		return
	}
	artifact := filepath.Base(req.Path)

	userID, err := h.resolveUserID(r.Context(), req.UserID)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "DECRYPT", artifact, req.UserID, middleware.ResultFailed)
		writeError(w, err)
		return
	}

	msgs, err := h.service.DecryptFull(r.Context(), req.Path, userID)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "DECRYPT", artifact, userID, middleware.ResultFailed)
		writeError(w, err)
		return
	}

	result := middleware.ResultSuccess
	if len(msgs) == 0 {
		result = middleware.ResultEmpty
	}
	middleware.WriteAuditLog(r.Context(), "DECRYPT", artifact, userID, result)
	httputil.JSON(w, http.StatusOK, MessagesResponse{Artifact: artifact, Count: len(msgs), Messages: msgs})
}

// Discover はファイル全体に対して鍵候補探索を行う。
func (h *DecryptHandler) Discover(w http.ResponseWriter, r *http.Request) {
	var req DiscoverRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil || req.Path == "" {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "path is required")
		return
	}
	artifact := filepath.Base(req.Path)

	result, err := h.service.Discover(r.Context(), req.Path)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "DISCOVER", artifact, "", middleware.ResultFailed)
		writeError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "DISCOVER", artifact, "", middleware.ResultSuccess)
	httputil.JSON(w, http.StatusOK, DiscoverResponse{
		Artifact:   artifact,
		Source:     result.Candidate.Source,
		Confidence: result.Candidate.Confidence,
		Attempts:   result.Attempts,
		StoredKeys: result.StoredKeys,
		Messages:   result.Messages,
	})
}

// ListArtifacts はユーザーの暗号化ファイルを一覧する。
func (h *DecryptHandler) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	userID, err := h.resolveUserID(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, err)
		return
	}

	artifacts, err := h.service.Locate(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := ArtifactListResponse{UserID: userID, Artifacts: make([]ArtifactResponse, len(artifacts))}
	for i, a := range artifacts {
		resp.Artifacts[i] = ArtifactResponse{Path: a.Path, ByteSize: a.ByteSize}
	}
	httputil.JSON(w, http.StatusOK, resp)
}

func (h *DecryptHandler) resolveUserID(ctx context.Context, userID string) (string, error) {
	if userID != "" || h.users == nil {
		return userID, nil
	}
	return h.users.UserID(ctx)
}

// writeError はドメインエラーをHTTPステータスに対応付けて返す。
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrFileNotFound):
		httputil.Error(w, http.StatusNotFound, "FILE_NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrInvalidUserID):
		httputil.Error(w, http.StatusBadRequest, "INVALID_USER_ID", "invalid user ID format")
	case errors.Is(err, domain.ErrInvalidArtifactName):
		httputil.Error(w, http.StatusBadRequest, "INVALID_ARTIFACT_NAME", "file name must match chatLogs_<digits>.edb")
	case errors.Is(err, domain.ErrParse):
		httputil.Error(w, http.StatusBadRequest, "PARSE_ERROR", err.Error())
	case errors.Is(err, domain.ErrDecryption):
		httputil.Error(w, http.StatusUnprocessableEntity, "DECRYPTION_FAILED", err.Error())
	case errors.Is(err, domain.ErrNoCandidateMatched):
		httputil.Error(w, http.StatusUnprocessableEntity, "NO_CANDIDATE_MATCHED", "no key candidate produced a valid database")
	case errors.Is(err, domain.ErrIdentityUnavailable):
		// 識別情報が読めなくても /v1/discover での探索はできる
		httputil.Error(w, http.StatusServiceUnavailable, "IDENTITY_UNAVAILABLE", err.Error())
	case errors.Is(err, domain.ErrIO):
		httputil.Error(w, http.StatusInternalServerError, "IO_ERROR", err.Error())
	default:
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
