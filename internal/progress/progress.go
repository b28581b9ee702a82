// Package progress はパイプラインの進捗を共有するスレッドセーフなシンクを提供する。
package progress

import (
	"sync"

	"edb-forensics/internal/domain"
)

// Reporter はパイプラインの各ステージが進捗を書き込む先。
type Reporter interface {
	Start(runID string)
	Update(step string, percent int, message string)
	SetCandidates(n int)
	Finish(message string)
}

// Manager はmutexで保護された単一の進捗レコードを持つ。
// 書き込むのはパイプライン、読むのは外部のポーラー。
type Manager struct {
	mu    sync.Mutex
	state domain.AnalysisProgress
}

var _ Reporter = (*Manager)(nil)

// NewManager は新しいManagerを生成する。
func NewManager() *Manager {
	return &Manager{}
}

// Start はレコードを初期化して実行中にする。
func (m *Manager) Start(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = domain.AnalysisProgress{RunID: runID, IsRunning: true}
}

// Update は現在のステップと進捗率を更新する。
func (m *Manager) Update(step string, percent int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.StepLabel = step
	m.state.Percent = clampPercent(percent)
	m.state.Message = message
}

// SetCandidates は見つかった鍵候補数を記録する。
func (m *Manager) SetCandidates(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.CandidatesFound = n
}

// Finish は実行を終了状態にする。
func (m *Manager) Finish(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.IsRunning = false
	m.state.Percent = 100
	m.state.Message = message
}

// Snapshot は現在の進捗のコピーを返す。
func (m *Manager) Snapshot() domain.AnalysisProgress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func clampPercent(p int) int {
	return min(max(p, 0), 100)
}

// Nop は何も記録しないReporter。
type Nop struct{}

func (Nop) Start(string)               {}
func (Nop) Update(string, int, string) {}
func (Nop) SetCandidates(int)          {}
func (Nop) Finish(string)              {}
