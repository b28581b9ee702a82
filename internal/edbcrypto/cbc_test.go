package edbcrypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"testing"

	"edb-forensics/internal/domain"
)

func testKeyMaterial() domain.KeyMaterial {
	var km domain.KeyMaterial
	copy(km.Key[:], bytes.Repeat([]byte{0xAB}, 16))
	copy(km.IV[:], bytes.Repeat([]byte{0x24}, 16))
	return km
}

func patterned(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i/251)
	}
	return b
}

func TestChunkedCBC_RoundTrip(t *testing.T) {
	km := testKeyMaterial()

	for _, size := range []int{0, 1, 15, 16, 17, 4095, 4096, 4097, 4111, 8192, 8192 + 5, 3*4096 + 33} {
		plaintext := patterned(size)
		ct, err := EncryptChunked(plaintext, km)
		if err != nil {
			t.Fatalf("size=%d: encrypt: %v", size, err)
		}
		pt, err := ChunkedCBC{}.Decrypt(ct, km)
		if err != nil {
			t.Fatalf("size=%d: decrypt: %v", size, err)
		}
		if !bytes.Equal(pt, plaintext) {
			t.Fatalf("size=%d: round-trip mismatch", size)
		}
	}
}

func TestChunkedCBC_TrailingRemainderPassesThrough(t *testing.T) {
	km := testKeyMaterial()
	ct := patterned(4096 + 16 + 7)

	pt, err := ChunkedCBC{}.Decrypt(ct, km)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if len(pt) != len(ct) {
		t.Fatalf("want length %d, got %d", len(ct), len(pt))
	}
	if !bytes.Equal(pt[len(pt)-7:], ct[len(ct)-7:]) {
		t.Error("trailing partial block was modified")
	}
	if bytes.Equal(pt[:16], ct[:16]) {
		t.Error("first block was not decrypted")
	}
}

func TestChunkedCBC_ShortInputUntouched(t *testing.T) {
	ct := []byte("only nine")
	pt, err := ChunkedCBC{}.Decrypt(ct, testKeyMaterial())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(pt, ct) {
		t.Errorf("want %q, got %q", ct, pt)
	}
}

func TestChunkedCBC_ResetsIVPerChunk(t *testing.T) {
	km := testKeyMaterial()
	plaintext := patterned(2 * ChunkSize)

	ct, err := EncryptChunked(plaintext, km)
	if err != nil {
		t.Fatal(err)
	}

	// The second chunk must be decryptable on its own with the original IV.
	second, err := ChunkedCBC{}.Decrypt(ct[ChunkSize:], km)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(second, plaintext[ChunkSize:]) {
		t.Fatal("second chunk did not decrypt independently")
	}

	// Textbook CBC over the same bytes must disagree from the second chunk onwards.
	block, _ := aes.NewCipher(km.Key[:])
	textbook := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, km.IV[:]).CryptBlocks(textbook, ct)
	if !bytes.Equal(textbook[:ChunkSize], plaintext[:ChunkSize]) {
		t.Error("first chunk should match textbook CBC")
	}
	if bytes.Equal(textbook[ChunkSize:ChunkSize+16], plaintext[ChunkSize:ChunkSize+16]) {
		t.Error("second chunk unexpectedly matched textbook CBC")
	}
}

func TestChunkedCBC_KeepsPadding(t *testing.T) {
	km := testKeyMaterial()
	plaintext := append([]byte("0123456789ab"), 0x04, 0x04, 0x04, 0x04)

	ct, err := EncryptChunked(plaintext, km)
	if err != nil {
		t.Fatal(err)
	}
	pt, err := ChunkedCBC{}.Decrypt(ct, km)
	if err != nil {
		t.Fatal(err)
	}
	if len(pt) != 16 {
		t.Errorf("padding bytes were stripped: got %d bytes", len(pt))
	}
}

func TestContinuousCBC_RoundTrip(t *testing.T) {
	km := testKeyMaterial()

	for _, size := range []int{1, 15, 16, 17, 31, 32, 100, 4097} {
		plaintext := bytes.Repeat([]byte("가"), size)
		ct, err := EncryptContinuous(plaintext, km)
		if err != nil {
			t.Fatalf("size=%d: encrypt: %v", size, err)
		}
		pt, err := ContinuousCBC{}.Decrypt(ct, km)
		if err != nil {
			t.Fatalf("size=%d: decrypt: %v", size, err)
		}
		if !bytes.Equal(pt, plaintext) {
			t.Fatalf("size=%d: round-trip mismatch", size)
		}
	}
}

func TestContinuousCBC_RejectsBadLength(t *testing.T) {
	tests := []struct {
		name string
		ct   []byte
	}{
		{"empty", nil},
		{"not block-aligned", []byte{0x01, 0x02, 0x03}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ContinuousCBC{}.Decrypt(tc.ct, testKeyMaterial())
			if !errors.Is(err, domain.ErrDecryption) {
				t.Fatalf("want ErrDecryption, got %v", err)
			}
		})
	}
}

func TestDecryptorNames(t *testing.T) {
	if (ChunkedCBC{}).Name() == (ContinuousCBC{}).Name() {
		t.Error("strategies must have distinct names")
	}
}
