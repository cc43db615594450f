package main

import (
	"fmt"
	"log"
	"os"

	pg "golang-notify-dispatch/internal/adapters/db/postgres"
	"golang-notify-dispatch/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	fmt.Println("Connecting to database...")

	db, err := gorm.Open(postgres.Open(conf.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}

	sqlDB, _ := db.DB()
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	fmt.Println("Running migrations...")

	if err := db.AutoMigrate(&pg.NotificationRow{}, &pg.NotificationItemRow{}); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	var tables []string
	db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables)

	if len(tables) == 0 {
		fmt.Println("no tables found")
		os.Exit(1)
	}

	fmt.Println("Tables:")
	for _, table := range tables {
		fmt.Printf("  - %s\n", table)
	}

	fmt.Println("Database ready.")
}
