package edbcrypto

// PKCS7Pad はblockSizeの倍数になるようPKCS#7パディングを付けた新しいスライスを返す。
func PKCS7Pad(data []byte, blockSize int) []byte {
	pad := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+pad)
	copy(out, data)
	for range pad {
		out = append(out, byte(pad))
	}
	return out
}

// trimTrailingPad は末尾1バイトだけを信じてパディングを落とす。
// 値が1..blockSizeの範囲外ならそのまま返す。
func trimTrailingPad(data []byte, blockSize int) []byte {
	if len(data) == 0 {
		return data
	}
	pad := int(data[len(data)-1])
	if pad < 1 || pad > blockSize || pad > len(data) {
		return data
	}
	return data[:len(data)-pad]
}
