package edbcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"edb-forensics/internal/domain"
)

// Decryptor は鍵素材で暗号文を復号する戦略。
type Decryptor interface {
	Decrypt(ciphertext []byte, km domain.KeyMaterial) ([]byte, error)
	Name() string
}

// ChunkedCBC はファイル全体を4096バイト単位で復号する主経路の戦略。
// 各チャンクの先頭でCBCの連鎖値を元のIVに戻す。
type ChunkedCBC struct{}

// ContinuousCBC はIVを引き継ぐ通常のCBCで復号し、末尾のパディングを緩く落とす戦略。
type ContinuousCBC struct{}

var (
	_ Decryptor = ChunkedCBC{}
	_ Decryptor = ContinuousCBC{}
)

func (ChunkedCBC) Name() string    { return "chunked-cbc" }
func (ContinuousCBC) Name() string { return "continuous-cbc" }

// Decrypt はチャンク単位で復号する。完全なブロックにならない末尾は復号せずにそのまま残す。
// パディングは除去しない。
func (ChunkedCBC) Decrypt(ciphertext []byte, km domain.KeyMaterial) ([]byte, error) {
	block, err := aes.NewCipher(km.Key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: chunked cbc: %v", domain.ErrDecryption, err)
	}

	out := make([]byte, len(ciphertext))
	copy(out, ciphertext)
	forEachChunk(out, func(chunk []byte) {
		cipher.NewCBCDecrypter(block, km.IV[:]).CryptBlocks(chunk, chunk)
	})
	return out, nil
}

// EncryptChunked はChunkedCBCの逆変換。テスト用アーティファクトの生成に使う。
func EncryptChunked(plaintext []byte, km domain.KeyMaterial) ([]byte, error) {
	block, err := aes.NewCipher(km.Key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: chunked cbc: %v", domain.ErrDecryption, err)
	}

	out := make([]byte, len(plaintext))
	copy(out, plaintext)
	forEachChunk(out, func(chunk []byte) {
		cipher.NewCBCEncrypter(block, km.IV[:]).CryptBlocks(chunk, chunk)
	})
	return out, nil
}

// forEachChunk はbufをChunkSizeごとに区切り、ブロック境界に揃えた部分だけをfnに渡す。
func forEachChunk(buf []byte, fn func(chunk []byte)) {
	for off := 0; off < len(buf); off += ChunkSize {
		end := min(off+ChunkSize, len(buf))
		aligned := (end - off) / aes.BlockSize * aes.BlockSize
		if aligned == 0 {
			continue
		}
		fn(buf[off : off+aligned])
	}
}

// Decrypt は連続CBCで復号する。末尾1バイトが1..16ならパディング長として扱う。
func (ContinuousCBC) Decrypt(ciphertext []byte, km domain.KeyMaterial) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: continuous cbc: ciphertext length %d not a multiple of block size",
			domain.ErrDecryption, len(ciphertext))
	}
	block, err := aes.NewCipher(km.Key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: continuous cbc: %v", domain.ErrDecryption, err)
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, km.IV[:]).CryptBlocks(out, ciphertext)
	return trimTrailingPad(out, aes.BlockSize), nil
}

// EncryptContinuous はPKCS#7でパディングして連続CBCで暗号化する。
func EncryptContinuous(plaintext []byte, km domain.KeyMaterial) ([]byte, error) {
	block, err := aes.NewCipher(km.Key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: continuous cbc: %v", domain.ErrDecryption, err)
	}

	padded := PKCS7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, km.IV[:]).CryptBlocks(out, padded)
	return out, nil
}
