// Package domain はドメインモデルとビジネスルールを定義する。
package domain

import "time"

// BlockSize はAES-128のブロック長。鍵とIVも同じ長さ。
const BlockSize = 16

// SystemFingerprint はマシン識別情報の三つ組を表す。永続化しない。
type SystemFingerprint struct {
	UUID         string
	ModelName    string
	SerialNumber string
}

// KeyMaterial は復号鍵とIVの組を表す。
type KeyMaterial struct {
	Key [BlockSize]byte
	IV  [BlockSize]byte
}

// KeyCandidate は探索で得られた鍵候補を表す。
type KeyCandidate struct {
	Key        [BlockSize]byte
	Confidence int    // 0-100
	Source     string // 候補を出したプローブ名
}

// RecoveredKey はケースストアに保存された検証済み鍵を表す。
type RecoveredKey struct {
	ID           string
	ArtifactName string
	SealedKey    []byte
	Source       string
	CreatedAt    time.Time
}
