package edbcrypto

import (
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"fmt"

	"edb-forensics/internal/domain"
)

// DeriveKeyMaterial は(pragma, userID)から復号鍵とIVを導出する。
func DeriveKeyMaterial(pragma, userID string) (domain.KeyMaterial, error) {
	if pragma == "" || userID == "" {
		return domain.KeyMaterial{}, fmt.Errorf("%w: pragma and user ID must not be empty", domain.ErrDecryption)
	}

	seed := []byte(pragma + userID)
	buf := bytes.Repeat(seed, keyMaterialBufferSize/len(seed)+1)[:keyMaterialBufferSize]

	var km domain.KeyMaterial
	km.Key = md5.Sum(buf)
	km.IV = IVFromKey(km.Key)
	return km, nil
}

// IVFromKey は鍵のBase64表現のMD5をIVとして返す。
func IVFromKey(key [domain.BlockSize]byte) [domain.BlockSize]byte {
	return md5.Sum([]byte(base64.StdEncoding.EncodeToString(key[:])))
}
