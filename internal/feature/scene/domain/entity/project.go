// Package entity はsceneフィーチャーのドメインモデルを定義します。
package entity

import "time"

// ProjectStatus はプロジェクトの処理状態を表します。
type ProjectStatus string

const (
	// StatusProcessing はパイプライン実行中の状態です。
	StatusProcessing ProjectStatus = "processing"
	// StatusCompleted はシーン生成が完了した終端状態です。
	StatusCompleted ProjectStatus = "completed"
	// StatusFailed は致命的なエラーで停止した終端状態です。
	StatusFailed ProjectStatus = "failed"
)

// IsTerminal は状態が終端（completed / failed）かどうかを返します。
func (s ProjectStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo はsからnextへの遷移が許可されているかを返します。
// 許可されるのは processing → completed / failed のみです。
func (s ProjectStatus) CanTransitionTo(next ProjectStatus) bool {
	return s == StatusProcessing && next.IsTerminal()
}

// Project は1枚の部屋写真から3Dシーンを生成する処理単位です。
type Project struct {
	ID        string        // プロジェクトID（UUID）
	UserID    uint          // 所有ユーザーID
	Name      string        // 表示名
	ImageURL  string        // 元画像のURL
	Status    ProjectStatus // 処理状態
	CreatedAt time.Time
	UpdatedAt time.Time
}
