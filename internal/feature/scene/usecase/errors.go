// Package usecase はsceneフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"errors"
	"fmt"
)

// パイプラインのエラー分類です。PipelineErrorはこれらのいずれかにアンラップされます。
var (
	// ErrInvalidInput は画像が空・大きすぎる・破損している場合のエラーです（副作用なし）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrUploadFailed は画像ストアへの保存に失敗した場合のエラーです。
	ErrUploadFailed = errors.New("upload failed")
	// ErrPersistenceFailed はメタデータストアへの書き込みに失敗した場合のエラーです。
	ErrPersistenceFailed = errors.New("persistence failed")
	// ErrDetectionFailed は物体検出サービス自体がエラーを返した場合のエラーです。
	// 検出結果が0件であることはエラーではありません。
	ErrDetectionFailed = errors.New("detection failed")
	// ErrDepthEstimationFailed は深度推定サービスが失敗した場合のエラーです。
	ErrDepthEstimationFailed = errors.New("depth estimation failed")
	// ErrSceneBuildFailed はシーン構築が失敗した場合のエラーです。
	ErrSceneBuildFailed = errors.New("scene build failed")
)

var (
	// ErrProjectNotFound はプロジェクトが存在しない（または他ユーザーの）場合に返されます。
	ErrProjectNotFound = errors.New("project not found")
	// ErrSceneNotFound はプロジェクトにシーンがまだ保存されていない場合に返されます。
	ErrSceneNotFound = errors.New("scene not found")
	// ErrInvalidTransition は終端状態からの状態遷移など、許可されない遷移で返されます。
	ErrInvalidTransition = errors.New("invalid project status transition")
	// ErrDepthShapeMismatch は深度マップの形状が推論に渡した画像と一致しない場合の原因エラーです。
	ErrDepthShapeMismatch = errors.New("depth map shape does not match image")
	// ErrProjectExists は同じIDのプロジェクトが既に存在する場合に返されます。
	ErrProjectExists = errors.New("project already exists")
)

// PipelineError はパイプラインの失敗を1つの分類とプロジェクトIDにまとめます。
// errors.Is(err, ErrDepthEstimationFailed) のように分類で判定でき、
// 原因のエラーにもアンラップできます。
type PipelineError struct {
	Kind      error  // 上記の分類センチネル
	ProjectID string // プロジェクト作成前の失敗では空
	Err       error  // 原因
}

func (e *PipelineError) Error() string {
	if e.ProjectID == "" {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%v (project %s): %v", e.Kind, e.ProjectID, e.Err)
}

// Unwrap は分類と原因の両方を返します。
func (e *PipelineError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func newPipelineError(kind error, projectID string, err error) *PipelineError {
	return &PipelineError{Kind: kind, ProjectID: projectID, Err: err}
}
