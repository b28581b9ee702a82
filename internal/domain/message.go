package domain

// ExtractedMessage は復号済みデータベースから取り出したチャット行を表す。
type ExtractedMessage struct {
	ID          string `json:"id"`
	Sender      string `json:"sender"`
	Content     string `json:"content"`
	Timestamp   int64  `json:"timestamp"`
	MessageType int64  `json:"messageType"`
}
