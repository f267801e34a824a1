package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"roomscene_backend/internal/feature/scene/adapters/storage"
	"roomscene_backend/internal/feature/scene/transport/http/dto"
)

// MediaReader は保存済みの画像を読み出します。
type MediaReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// MediaHandler は画像ストアの内容を配信します。
type MediaHandler struct {
	store MediaReader
}

// NewMediaHandler はMediaHandlerの新しいインスタンスを生成します。
func NewMediaHandler(store MediaReader) *MediaHandler {
	return &MediaHandler{store: store}
}

// Serve はkeyに対応する画像を返します。
//
// エンドポイント: GET /media/*key
func (h *MediaHandler) Serve(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")

	data, err := h.store.Get(c.Request.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidKey):
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "not found", Kind: "not_found"})
		default:
			slog.Error("メディアの読み出しに失敗", "error", err, "key", key)
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to read media"})
		}
		return
	}

	c.Header("Cache-Control", "public, max-age=86400, immutable")
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}
