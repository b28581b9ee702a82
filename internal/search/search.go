// Package search は鍵候補の収集と試行復号による代替経路を提供する。
package search

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"edb-forensics/internal/domain"
	"edb-forensics/internal/edbcrypto"
	"edb-forensics/internal/progress"
)

// AcceptFunc は試行復号の結果を受け入れるかを判定する。
type AcceptFunc func(plaintext []byte) bool

// Match は受け入れられた候補とその復号結果。
type Match struct {
	Candidate domain.KeyCandidate
	Plaintext []byte
	Attempts  int
}

// Searcher はプロバイダから候補を集め、発見順に一つずつ試す。
type Searcher struct {
	providers []CandidateProvider
	decryptor edbcrypto.Decryptor
}

// NewSearcher は連続CBCで試行するSearcherを生成する。
func NewSearcher(providers ...CandidateProvider) *Searcher {
	return &Searcher{providers: providers, decryptor: edbcrypto.ContinuousCBC{}}
}

// Collect は全プロバイダの候補を発見順に返す。
// 一つも出なければゼロ鍵を唯一の候補にする。
func (s *Searcher) Collect(ctx context.Context, target Target, reporter progress.Reporter) []domain.KeyCandidate {
	var candidates []domain.KeyCandidate
	for i, p := range s.providers {
		reporter.Update("discover", 5+i*10/max(len(s.providers), 1), "probing "+p.Name())
		found, err := p.Candidates(ctx, target)
		if err != nil {
			slog.WarnContext(ctx, "key candidate provider failed",
				"operation", "discover",
				"probe", p.Name(),
				"error", err,
			)
			continue
		}
		candidates = append(candidates, found...)
	}
	if len(candidates) == 0 {
		candidates = append(candidates, ZeroKeyCandidate())
	}
	reporter.SetCandidates(len(candidates))
	return candidates
}

// Search は候補を順に試し、acceptを満たした最初の候補で打ち切る。
func (s *Searcher) Search(ctx context.Context, target Target, ciphertext []byte, accept AcceptFunc, reporter progress.Reporter) (*Match, error) {
	candidates := s.Collect(ctx, target, reporter)

	for i, c := range candidates {
		attempt := i + 1
		reporter.Update("discover", 15+attempt*80/len(candidates),
			fmt.Sprintf("trying candidate %d/%d from %s", attempt, len(candidates), c.Source))

		km := domain.KeyMaterial{Key: c.Key, IV: edbcrypto.IVFromKey(c.Key)}
		plaintext, err := s.decryptor.Decrypt(ciphertext, km)
		if err != nil {
			slog.DebugContext(ctx, "candidate decryption failed",
				"operation", "discover",
				"source", c.Source,
				"attempt", attempt,
				"error", err,
			)
			continue
		}
		if !accept(plaintext) {
			continue
		}

		slog.InfoContext(ctx, "key candidate validated",
			"operation", "discover",
			"source", c.Source,
			"confidence", c.Confidence,
			"attempt", attempt,
		)
		return &Match{Candidate: c, Plaintext: plaintext, Attempts: attempt}, nil
	}

	return nil, fmt.Errorf("%w: %d candidate(s) tried", domain.ErrNoCandidateMatched, len(candidates))
}

// AcceptDatabase はファイル全体の復号結果をSQLiteヘッダで判定する。
func AcceptDatabase(plaintext []byte) bool {
	return edbcrypto.HasSQLiteHeader(plaintext)
}

// AcceptText は行単位の復号結果を空でない正しいUTF-8かで判定する。
func AcceptText(plaintext []byte) bool {
	return len(plaintext) > 0 && utf8.Valid(plaintext)
}
