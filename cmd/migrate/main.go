package main

import (
	"fmt"
	"os"

	"driftmail/backend/internal/config"
	sqlstore "driftmail/backend/internal/storage/sql"
)

// main 对配置的数据库执行表结构迁移后退出。
//
// 服务启动时也会自动迁移，本工具用于部署流水线中独立执行迁移。
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Database.Type == "" || cfg.Database.DSN == "" {
		fmt.Fprintln(os.Stderr, "no database configured (set DRIFTMAIL_DATABASE_TYPE and DRIFTMAIL_DATABASE_DSN)")
		os.Exit(1)
	}

	store, err := sqlstore.NewStore(
		cfg.Database.Type,
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	fmt.Printf("migration completed (%s)\n", cfg.Database.Type)
}
