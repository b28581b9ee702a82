package edbcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha512"
	"encoding/base64"
	"fmt"

	"edb-forensics/internal/domain"
)

// DerivePragma はマシン識別情報からpragma文字列を導出する。
//
// uuid|model|serial を固定鍵・ゼロIVのAES-128-CBC(PKCS#7)で暗号化し、
// 暗号文のSHA-512をBase64にしたものがpragmaになる。
func DerivePragma(fp domain.SystemFingerprint) (string, error) {
	block, err := aes.NewCipher(pragmaKey)
	if err != nil {
		return "", fmt.Errorf("%w: pragma cipher: %v", domain.ErrDecryption, err)
	}

	plaintext := PKCS7Pad([]byte(fp.UUID+"|"+fp.ModelName+"|"+fp.SerialNumber), aes.BlockSize)
	iv := make([]byte, aes.BlockSize)
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)

	sum := sha512.Sum512(ciphertext)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}
