package domain

// EncryptedArtifact は入力となる暗号化チャットログファイルを表す。
type EncryptedArtifact struct {
	Path     string
	ByteSize int64
}

// AnalysisProgress はパイプラインの進捗状況を表す。
type AnalysisProgress struct {
	RunID           string `json:"run_id"`
	StepLabel       string `json:"step"`
	Percent         int    `json:"percent"`
	Message         string `json:"message"`
	IsRunning       bool   `json:"is_running"`
	CandidatesFound int    `json:"candidates_found"`
}

// DiscoveryResult は鍵候補探索の結果を表す。
type DiscoveryResult struct {
	Candidate KeyCandidate
	Attempts  int
	Messages  []ExtractedMessage

	// StoredKeys はケースストアに保存済みの同じアーティファクトの鍵数。ストア無効なら0。
	StoredKeys int64
}
