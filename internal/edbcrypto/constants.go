// Package edbcrypto はKakaoTalkのEDBファイル向けの鍵導出とAES-CBC復号を提供する。
package edbcrypto

import "encoding/hex"

const (
	// ChunkSize は主経路の復号単位。チャンクごとにIVを初期値に戻す。
	ChunkSize = 4096

	// SQLiteHeader は復号結果の先頭16バイトに期待するシグネチャ。
	SQLiteHeader = "SQLite format 3\x00"

	// keyMaterialBufferSize はpragma+userIDを繰り返して埋めるバッファ長。
	keyMaterialBufferSize = 512
)

// pragmaKeyHex はクライアントに埋め込まれている固定鍵。差し替えはここだけで行う。
const pragmaKeyHex = "9fbae3118fde5deaeb8279d08f1d4c79"

var pragmaKey = mustDecodeHex(pragmaKeyHex)

func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
