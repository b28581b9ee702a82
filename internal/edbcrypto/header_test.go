package edbcrypto

import "testing"

func TestHasSQLiteHeader(t *testing.T) {
	valid := append([]byte(SQLiteHeader), 0x10, 0x00, 0x01, 0x01)

	if !HasSQLiteHeader(valid) {
		t.Fatal("expected valid header to be accepted")
	}
	if !HasSQLiteHeader([]byte(SQLiteHeader)) {
		t.Error("expected exact 16-byte header to be accepted")
	}
	if HasSQLiteHeader([]byte(SQLiteHeader)[:15]) {
		t.Error("expected 15-byte buffer to be rejected")
	}
	if HasSQLiteHeader(nil) {
		t.Error("expected nil buffer to be rejected")
	}
}

func TestHasSQLiteHeader_EveryBitFlipRejected(t *testing.T) {
	for i := range 16 * 8 {
		buf := []byte(SQLiteHeader + "trailing page data")
		buf[i/8] ^= 1 << (i % 8)
		if HasSQLiteHeader(buf) {
			t.Fatalf("bit %d flipped but header still accepted", i)
		}
	}
}
