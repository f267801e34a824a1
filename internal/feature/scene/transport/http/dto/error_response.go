package dto

// ErrorResponse はエラーレスポンスDTOです。
type ErrorResponse struct {
	Error     string `json:"error"`                // エラーメッセージ
	Kind      string `json:"kind,omitempty"`       // エラー分類（invalid_input など）
	ProjectID string `json:"project_id,omitempty"` // プロジェクト作成後の失敗の場合のみ
}
