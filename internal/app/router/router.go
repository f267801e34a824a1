package router

import (
	"github.com/gin-gonic/gin"

	scenehandler "roomscene_backend/internal/feature/scene/transport/handler"
	"roomscene_backend/internal/platform/http/handler"
	jwtmw "roomscene_backend/internal/platform/jwt"
)

// Handlers はルーターに登録するハンドラー群です。
type Handlers struct {
	Projects *scenehandler.ProjectHandler
	Media    *scenehandler.MediaHandler
	Checks   []handler.Check // /readyz で確認する依存先
}

// NewRouter はルーティングを設定したgin.Engineを返します。
func NewRouter(h Handlers, jwtSecret string) *gin.Engine {
	r := gin.Default()

	// 認証不要
	// 導通確認用
	r.GET("/healthz", handler.Health)
	r.HEAD("/healthz", handler.Health)
	// DB・Redisの疎通確認
	r.GET("/readyz", handler.Ready(h.Checks...))
	// アップロード画像・深度マップの配信
	r.GET("/media/*key", h.Media.Serve)

	// 認証必須のルート
	// → リクエストヘッダーに JWT が必要になる
	v1 := r.Group("/v1")
	v1.Use(jwtmw.AuthRequired(jwtSecret))
	{
		v1.POST("/projects", h.Projects.Create)
		v1.GET("/projects", h.Projects.List)
		v1.GET("/projects/:id", h.Projects.Get)
	}

	return r
}
