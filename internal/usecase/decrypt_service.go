// Package usecase はアプリケーションのユースケースを実装する。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"edb-forensics/internal/domain"
	"edb-forensics/internal/edbcrypto"
	"edb-forensics/internal/locator"
	"edb-forensics/internal/progress"
	"edb-forensics/internal/search"
)

var tracer = otel.Tracer("edb-forensics/internal/usecase")

// IdentityProvider はマシン識別情報を読むインターフェース。
type IdentityProvider interface {
	Fingerprint(ctx context.Context) (domain.SystemFingerprint, error)
}

// ArtifactLocator はユーザーの暗号化ファイルを探すインターフェース。
type ArtifactLocator interface {
	Locate(ctx context.Context, userID string) ([]domain.EncryptedArtifact, error)
}

// MessageExtractor は復号済みバッファからメッセージを取り出すインターフェース。
type MessageExtractor interface {
	Extract(ctx context.Context, decrypted []byte) ([]domain.ExtractedMessage, error)
}

// CandidateSearcher は鍵候補を順に試すインターフェース。
type CandidateSearcher interface {
	Search(ctx context.Context, target search.Target, ciphertext []byte, accept search.AcceptFunc, reporter progress.Reporter) (*search.Match, error)
}

// RecoveredKeyStore は検証済み鍵を保存するインターフェース。
type RecoveredKeyStore interface {
	Create(ctx context.Context, key *domain.RecoveredKey) error
	CountByArtifactName(ctx context.Context, artifactName string) (int64, error)
}

// KeySealer は保存前に鍵を封印するインターフェース。
type KeySealer interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
}

// RowResult は行単位の試行復号の結果。
type RowResult struct {
	Text      string
	Candidate domain.KeyCandidate
	Attempts  int
}

// DecryptService は復号パイプライン全体を組み立てる。
type DecryptService struct {
	identity     IdentityProvider
	locator      ArtifactLocator
	extractor    MessageExtractor
	searcher     CandidateSearcher
	reporter     progress.Reporter
	primary      edbcrypto.Decryptor
	autoDiscover bool

	store  RecoveredKeyStore
	sealer KeySealer
}

// NewDecryptService は新しいDecryptServiceを生成する。
// autoDiscover が真なら、主経路のヘッダ検証に失敗したとき鍵候補探索に移る。
func NewDecryptService(identity IdentityProvider, loc ArtifactLocator, extractor MessageExtractor,
	searcher CandidateSearcher, reporter progress.Reporter, autoDiscover bool) *DecryptService {
	if reporter == nil {
		reporter = progress.Nop{}
	}
	return &DecryptService{
		identity:     identity,
		locator:      loc,
		extractor:    extractor,
		searcher:     searcher,
		reporter:     reporter,
		primary:      edbcrypto.ChunkedCBC{},
		autoDiscover: autoDiscover,
	}
}

// WithCaseStore は探索で検証できた鍵の保存先を設定する。
func (s *DecryptService) WithCaseStore(store RecoveredKeyStore, sealer KeySealer) *DecryptService {
	s.store = store
	s.sealer = sealer
	return s
}

// DecryptFull はファイルを主経路で復号してメッセージを返す。
// ヘッダ検証に失敗した場合はエラーにせず警告を出して空のスライスを返す。
func (s *DecryptService) DecryptFull(ctx context.Context, path, userID string) (msgs []domain.ExtractedMessage, err error) {
	ctx, span := tracer.Start(ctx, "DecryptFull", trace.WithAttributes(
		attribute.String("artifact", filepath.Base(path)),
	))
	defer func() { endSpan(span, err) }()

	s.begin()
	defer func() { s.finish(err, fmt.Sprintf("%d message(s) extracted", len(msgs))) }()

	s.reporter.Update("validate", 5, "checking artifact")
	artifact, err := locator.ValidateArtifact(path)
	if err != nil {
		return nil, err
	}
	if !locator.IsValidUserID(userID) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidUserID, userID)
	}

	km, err := s.deriveKeyMaterial(ctx, userID)
	if err != nil {
		return nil, err
	}

	ciphertext, err := readArtifact(ctx, artifact)
	if err != nil {
		return nil, err
	}

	s.reporter.Update("decrypt", 50, "decrypting with "+s.primary.Name())
	_, decSpan := tracer.Start(ctx, "decrypt")
	plaintext, err := s.primary.Decrypt(ciphertext, km)
	endSpan(decSpan, err)
	if err != nil {
		return nil, err
	}

	s.reporter.Update("validate_header", 70, "checking database header")
	if !edbcrypto.HasSQLiteHeader(plaintext) {
		slog.WarnContext(ctx, "decrypted header mismatch, derived key is probably wrong",
			"operation", "decrypt_full",
			"artifact", filepath.Base(path),
			"auto_discover", s.autoDiscover,
		)
		if !s.autoDiscover {
			return []domain.ExtractedMessage{}, nil
		}
		result, err := s.discover(ctx, artifact, ciphertext)
		if errors.Is(err, domain.ErrNoCandidateMatched) {
			slog.WarnContext(ctx, "discovery found no valid key",
				"operation", "decrypt_full",
				"artifact", filepath.Base(path),
			)
			return []domain.ExtractedMessage{}, nil
		}
		if err != nil {
			return nil, err
		}
		return result.Messages, nil
	}

	return s.extract(ctx, plaintext)
}

// Discover はファイル全体に対して鍵候補探索を明示的に実行する。
func (s *DecryptService) Discover(ctx context.Context, path string) (result *domain.DiscoveryResult, err error) {
	ctx, span := tracer.Start(ctx, "Discover", trace.WithAttributes(
		attribute.String("artifact", filepath.Base(path)),
	))
	defer func() { endSpan(span, err) }()

	s.begin()
	defer func() {
		msg := "no candidate validated"
		if result != nil {
			msg = fmt.Sprintf("candidate from %s validated after %d attempt(s)", result.Candidate.Source, result.Attempts)
		}
		s.finish(err, msg)
	}()

	s.reporter.Update("validate", 2, "checking artifact")
	artifact, err := locator.ValidateArtifact(path)
	if err != nil {
		return nil, err
	}
	ciphertext, err := readArtifact(ctx, artifact)
	if err != nil {
		return nil, err
	}
	return s.discover(ctx, artifact, ciphertext)
}

func (s *DecryptService) discover(ctx context.Context, artifact domain.EncryptedArtifact, ciphertext []byte) (*domain.DiscoveryResult, error) {
	ctx, span := tracer.Start(ctx, "discover")
	name := filepath.Base(artifact.Path)

	match, err := s.searcher.Search(ctx, search.Target{ArtifactName: name}, ciphertext, search.AcceptDatabase, s.reporter)
	if err != nil {
		endSpan(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("candidate.source", match.Candidate.Source),
		attribute.Int("candidate.attempts", match.Attempts),
	)
	endSpan(span, nil)

	s.saveRecoveredKey(ctx, name, match.Candidate)

	msgs, err := s.extract(ctx, match.Plaintext)
	if err != nil {
		return nil, err
	}
	return &domain.DiscoveryResult{
		Candidate:  match.Candidate,
		Attempts:   match.Attempts,
		Messages:   msgs,
		StoredKeys: s.storedKeyCount(ctx, name),
	}, nil
}

// storedKeyCount はケースストアにある同じアーティファクトの鍵数を返す。取れなければ0。
func (s *DecryptService) storedKeyCount(ctx context.Context, artifactName string) int64 {
	if s.store == nil {
		return 0
	}
	n, err := s.store.CountByArtifactName(ctx, artifactName)
	if err != nil {
		slog.WarnContext(ctx, "failed to count recovered keys",
			"operation", "discover",
			"artifact", artifactName,
			"error", err,
		)
		return 0
	}
	return n
}

// DecryptRow は行単位の暗号文を鍵候補で試行復号し、最初に正しいテキストになったものを返す。
func (s *DecryptService) DecryptRow(ctx context.Context, blob []byte) (result *RowResult, err error) {
	ctx, span := tracer.Start(ctx, "DecryptRow", trace.WithAttributes(
		attribute.Int("blob.size", len(blob)),
	))
	defer func() { endSpan(span, err) }()

	s.begin()
	defer func() { s.finish(err, "row decrypted") }()

	if len(blob) == 0 {
		return nil, fmt.Errorf("%w: empty row ciphertext", domain.ErrDecryption)
	}
	match, err := s.searcher.Search(ctx, search.Target{}, blob, search.AcceptText, s.reporter)
	if err != nil {
		return nil, err
	}
	return &RowResult{
		Text:      string(match.Plaintext),
		Candidate: match.Candidate,
		Attempts:  match.Attempts,
	}, nil
}

// Locate はユーザーIDから暗号化ファイルを探す。
func (s *DecryptService) Locate(ctx context.Context, userID string) ([]domain.EncryptedArtifact, error) {
	ctx, span := tracer.Start(ctx, "Locate")
	if !locator.IsValidUserID(userID) {
		err := fmt.Errorf("%w: %q", domain.ErrInvalidUserID, userID)
		endSpan(span, err)
		return nil, err
	}
	artifacts, err := s.locator.Locate(ctx, userID)
	span.SetAttributes(attribute.Int("artifacts", len(artifacts)))
	endSpan(span, err)
	return artifacts, err
}

// deriveKeyMaterial は識別情報を読み、pragmaを経て鍵とIVを導出する。
// 識別情報も鍵素材も呼び出しごとに計算し直す。
func (s *DecryptService) deriveKeyMaterial(ctx context.Context, userID string) (domain.KeyMaterial, error) {
	s.reporter.Update("identity", 15, "reading system identity")
	idCtx, span := tracer.Start(ctx, "identity")
	fp, err := s.identity.Fingerprint(idCtx)
	endSpan(span, err)
	if err != nil {
		return domain.KeyMaterial{}, err
	}

	s.reporter.Update("derive", 30, "deriving key material")
	_, span = tracer.Start(ctx, "derive")
	defer span.End()

	pragma, err := edbcrypto.DerivePragma(fp)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.KeyMaterial{}, err
	}
	km, err := edbcrypto.DeriveKeyMaterial(pragma, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.KeyMaterial{}, err
	}
	return km, nil
}

func (s *DecryptService) extract(ctx context.Context, plaintext []byte) (msgs []domain.ExtractedMessage, err error) {
	s.reporter.Update("extract", 85, "extracting messages")
	ctx, span := tracer.Start(ctx, "extract")
	defer func() {
		span.SetAttributes(attribute.Int("messages", len(msgs)))
		endSpan(span, err)
	}()
	return s.extractor.Extract(ctx, plaintext)
}

// saveRecoveredKey は探索で検証できた鍵をケースストアに保存する。失敗しても処理は続ける。
func (s *DecryptService) saveRecoveredKey(ctx context.Context, artifactName string, c domain.KeyCandidate) {
	if s.store == nil || s.sealer == nil {
		return
	}
	// ケースストア由来の鍵は既に保存済み
	if strings.HasPrefix(c.Source, "case-store") {
		return
	}

	sealed, err := s.sealer.Encrypt(ctx, c.Key[:])
	if err != nil {
		slog.WarnContext(ctx, "failed to seal recovered key",
			"operation", "save_recovered_key",
			"artifact", artifactName,
			"error", err,
		)
		return
	}
	rk := &domain.RecoveredKey{
		ArtifactName: artifactName,
		SealedKey:    sealed,
		Source:       c.Source,
	}
	if err := s.store.Create(ctx, rk); err != nil {
		slog.WarnContext(ctx, "failed to save recovered key",
			"operation", "save_recovered_key",
			"artifact", artifactName,
			"error", err,
		)
		return
	}
	slog.InfoContext(ctx, "recovered key saved",
		"operation", "save_recovered_key",
		"artifact", artifactName,
		"id", rk.ID,
		"source", c.Source,
	)
}

func (s *DecryptService) begin() {
	s.reporter.Start(uuid.New().String())
}

func (s *DecryptService) finish(err error, success string) {
	if err != nil {
		s.reporter.Finish("failed: " + err.Error())
		return
	}
	s.reporter.Finish(success)
}

func readArtifact(ctx context.Context, artifact domain.EncryptedArtifact) ([]byte, error) {
	_, span := tracer.Start(ctx, "read")
	defer span.End()
	span.SetAttributes(attribute.Int64("artifact.size", artifact.ByteSize))

	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrIO, artifact.Path, err)
	}
	return data, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
