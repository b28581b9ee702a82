package domain

import "errors"

var (
	// ErrIO はファイルの読み書きに失敗した場合のエラー。
	ErrIO = errors.New("io error")

	// ErrParse は識別情報ストアやlogin_listの内容が不正な場合のエラー。
	ErrParse = errors.New("parse error")

	// ErrDecryption は暗号処理または構造検証に失敗した場合のエラー。
	ErrDecryption = errors.New("decryption error")

	// ErrFileNotFound は命名・配置規約に合う暗号化ファイルが見つからない場合のエラー。
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidUserID はユーザーIDがメールアドレスにも携帯番号にも一致しない場合のエラー。
	ErrInvalidUserID = errors.New("invalid user ID")

	// ErrInvalidArtifactName はファイル名が chatLogs_<digits>.edb に一致しない場合のエラー。
	ErrInvalidArtifactName = errors.New("invalid artifact name")

	// ErrIdentityUnavailable は識別情報ストア自体が読めない場合のエラー。
	ErrIdentityUnavailable = errors.New("identity store unavailable")

	// ErrNoCandidateMatched は全ての鍵候補で復号検証に失敗した場合のエラー。
	ErrNoCandidateMatched = errors.New("no key candidate matched")
)
