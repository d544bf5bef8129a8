package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"agora/internal/config"
	"agora/internal/db"
	"agora/internal/router"
	"agora/internal/services"
	"agora/internal/storage"
	"agora/internal/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	gin.SetMode(cfg.GinMode)

	// Initialize Database
	gdb, err := db.Open(cfg)
	if err != nil {
		log.Fatal(err)
	}

	cache, err := utils.NewQueryCache(cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		log.Fatal(err)
	}

	// 未配置对象存储时附件上传不可用
	var store storage.ObjectStore
	if cfg.Storage.Enabled() {
		s3, err := storage.NewS3(cfg.Storage)
		if err != nil {
			log.Fatal(err)
		}
		store = s3
	} else {
		log.Println("Object storage not configured, attachment uploads disabled")
	}

	svc := services.New(gdb, cache, store, services.Options{
		AdminEmails: cfg.AdminEmails,
		PresignTTL:  cfg.Storage.PresignTTL,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 异步清理附件文件
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.Janitor.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Agora server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	wg.Wait()

	if sqlDB, err := gdb.DB(); err == nil {
		sqlDB.Close()
	}
}
