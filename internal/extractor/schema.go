package extractor

// schemaVariant はチャット行を持つテーブルの命名パターン一つ分。
// 空文字のカラムはそのバリアントに存在しない。
type schemaVariant struct {
	name      string
	table     string
	id        string
	sender    string
	content   string
	timestamp string
	msgType   string

	// implicitRowID はrowidを行IDとして使う最小構成。
	implicitRowID bool
}

// 上から順に試す。
var schemaVariants = []schemaVariant{
	{
		name:      "snake_case",
		table:     "chat_logs",
		id:        "id",
		sender:    "user_id",
		content:   "message",
		timestamp: "created_at",
		msgType:   "type",
	},
	{
		name:      "camel_case",
		table:     "chatLogs",
		id:        "logId",
		sender:    "authorId",
		content:   "message",
		timestamp: "sendAt",
		msgType:   "type",
	},
	{
		name:          "minimal",
		table:         "chatLogs",
		content:       "message",
		implicitRowID: true,
	},
	{
		name:          "minimal_snake",
		table:         "chat_logs",
		content:       "message",
		implicitRowID: true,
	},
}
