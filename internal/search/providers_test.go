package search

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"edb-forensics/internal/domain"
)

type fakeLookup struct {
	keys []*domain.RecoveredKey
	err  error
	name string
}

func (f *fakeLookup) FindByArtifactName(ctx context.Context, artifactName string) ([]*domain.RecoveredKey, error) {
	f.name = artifactName
	return f.keys, f.err
}

// xorUnsealer は封印を0x5aとのXORで模したもの。
type xorUnsealer struct{ fail bool }

func (u xorUnsealer) Decrypt(ctx context.Context, ct []byte) ([]byte, error) {
	if u.fail {
		return nil, errors.New("unseal failed")
	}
	out := make([]byte, len(ct))
	for i, b := range ct {
		out[i] = b ^ 0x5a
	}
	return out, nil
}

func TestCaseStoreProvider_Candidates(t *testing.T) {
	sealed := bytes.Repeat([]byte{0x11 ^ 0x5a}, 16)
	lookup := &fakeLookup{keys: []*domain.RecoveredKey{
		{ID: "k1", SealedKey: sealed, Source: "memory-pattern"},
		{ID: "k2", SealedKey: []byte{0x01, 0x02}, Source: "broken"},
	}}

	got, err := NewCaseStoreProvider(lookup, xorUnsealer{}).Candidates(context.Background(), Target{ArtifactName: "chatLogs_1.edb"})
	if err != nil {
		t.Fatalf("Candidates failed: %v", err)
	}
	if lookup.name != "chatLogs_1.edb" {
		t.Errorf("lookup used artifact %q", lookup.name)
	}
	if len(got) != 1 {
		t.Fatalf("want 1 candidate, got %d", len(got))
	}
	if got[0].Key != [16]byte(bytes.Repeat([]byte{0x11}, 16)) {
		t.Errorf("unexpected key %x", got[0].Key)
	}
	if got[0].Confidence != ConfidenceCaseStore || got[0].Source != "case-store:memory-pattern" {
		t.Errorf("unexpected candidate %+v", got[0])
	}
}

func TestCaseStoreProvider_Errors(t *testing.T) {
	_, err := NewCaseStoreProvider(&fakeLookup{err: errors.New("db down")}, xorUnsealer{}).Candidates(context.Background(), Target{})
	if err == nil {
		t.Fatal("expected lookup error to propagate")
	}

	got, err := NewCaseStoreProvider(&fakeLookup{keys: []*domain.RecoveredKey{{ID: "k", SealedKey: make([]byte, 16)}}}, xorUnsealer{fail: true}).
		Candidates(context.Background(), Target{})
	if err != nil {
		t.Fatalf("unseal failures should be skipped, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("want no candidates, got %d", len(got))
	}
}

func TestStubProbesYieldNothing(t *testing.T) {
	for _, p := range []CandidateProvider{RegistryPatternProbe{}, MemoryPatternProbe{}} {
		got, err := p.Candidates(context.Background(), Target{})
		if err != nil || len(got) != 0 {
			t.Errorf("%s: want no candidates, got %v, %v", p.Name(), got, err)
		}
	}
}
