package search

import (
	"context"
	"fmt"
	"log/slog"

	"edb-forensics/internal/domain"
)

// Target は探索対象の情報。プロバイダはこれを手がかりに候補を出す。
type Target struct {
	ArtifactName string
}

// CandidateProvider は鍵候補を出すプローブ。
type CandidateProvider interface {
	Name() string
	Candidates(ctx context.Context, target Target) ([]domain.KeyCandidate, error)
}

// 信頼度の目安。
const (
	ConfidenceCaseStore = 90
	ConfidenceZeroKey   = 50
)

// RegistryPatternProbe はレジストリ上の鍵パターンを探すプローブ。現状は候補を出さない。
type RegistryPatternProbe struct{}

func (RegistryPatternProbe) Name() string { return "registry-pattern" }

func (p RegistryPatternProbe) Candidates(ctx context.Context, target Target) ([]domain.KeyCandidate, error) {
	slog.DebugContext(ctx, "registry pattern scan yielded no candidates", "operation", "discover", "probe", p.Name())
	return nil, nil
}

// MemoryPatternProbe はプロセスメモリ上の鍵パターンを探すプローブ。現状は候補を出さない。
type MemoryPatternProbe struct{}

func (MemoryPatternProbe) Name() string { return "memory-pattern" }

func (p MemoryPatternProbe) Candidates(ctx context.Context, target Target) ([]domain.KeyCandidate, error) {
	slog.DebugContext(ctx, "memory pattern scan yielded no candidates", "operation", "discover", "probe", p.Name())
	return nil, nil
}

// ZeroKeyCandidate は他のプローブが何も出さなかったときの最後の候補。
func ZeroKeyCandidate() domain.KeyCandidate {
	return domain.KeyCandidate{Confidence: ConfidenceZeroKey, Source: "zero-key-fallback"}
}

// RecoveredKeyLookup はケースストアから検証済み鍵を引く。
type RecoveredKeyLookup interface {
	FindByArtifactName(ctx context.Context, artifactName string) ([]*domain.RecoveredKey, error)
}

// KeyUnsealer は保存時に封印した鍵を元に戻す。
type KeyUnsealer interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// CaseStoreProvider は同じアーティファクトで過去に検証できた鍵を候補として出す。
type CaseStoreProvider struct {
	repo     RecoveredKeyLookup
	unsealer KeyUnsealer
}

// NewCaseStoreProvider は新しいCaseStoreProviderを生成する。
func NewCaseStoreProvider(repo RecoveredKeyLookup, unsealer KeyUnsealer) *CaseStoreProvider {
	return &CaseStoreProvider{repo: repo, unsealer: unsealer}
}

func (*CaseStoreProvider) Name() string { return "case-store" }

func (p *CaseStoreProvider) Candidates(ctx context.Context, target Target) ([]domain.KeyCandidate, error) {
	keys, err := p.repo.FindByArtifactName(ctx, target.ArtifactName)
	if err != nil {
		return nil, fmt.Errorf("finding recovered keys: %w", err)
	}

	candidates := make([]domain.KeyCandidate, 0, len(keys))
	for _, k := range keys {
		raw, err := p.unsealer.Decrypt(ctx, k.SealedKey)
		if err != nil {
			slog.WarnContext(ctx, "failed to unseal recovered key",
				"operation", "discover",
				"id", k.ID,
				"error", err,
			)
			continue
		}
		if len(raw) != domain.BlockSize {
			continue
		}
		c := domain.KeyCandidate{Confidence: ConfidenceCaseStore, Source: p.Name() + ":" + k.Source}
		copy(c.Key[:], raw)
		candidates = append(candidates, c)
	}
	return candidates, nil
}
