package edbcrypto

import "bytes"

// HasSQLiteHeader は先頭16バイトがSQLiteのシグネチャと完全一致するかを返す。
func HasSQLiteHeader(buf []byte) bool {
	if len(buf) < len(SQLiteHeader) {
		return false
	}
	return bytes.Equal(buf[:len(SQLiteHeader)], []byte(SQLiteHeader))
}
