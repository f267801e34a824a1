package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	infradb "roomscene_backend/internal/platform/db"
)

// migrate はDBスキーマを作成・更新して終了します。
func main() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Info(".env not found; using system environment variables")
	}

	db, err := infradb.OpenDB(infradb.LoadConfigFromEnv())
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	if err := infradb.Migrate(db); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("migrate ok")
}
