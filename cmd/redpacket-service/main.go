package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"redpacket.com/internal/redpacket/app"
)

func main() {
	// 1. 支持 Ctrl+C / kubernetes 停止信号的 context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. 初始化 App
	rpApp, err := app.New("redpacket-service")
	if err != nil {
		log.Fatalf("init redpacket-service error: %v", err)
	}
	cleanUp, err := rpApp.StartService(ctx)
	if err != nil {
		log.Fatalf("start redpacket-service error: %v", err)
	}
	defer cleanUp()

	// 3. 后台任务 + http
	rpApp.StartJobs()
	srv := rpApp.StartHttp()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("redpacket-service ListenAndServe error: %v", err)
		}
	}()
	log.Printf("redpacket-service listening on %s", srv.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("redpacket-service shutdown error: %v", err)
	}
	log.Println("redpacket-service exit")
}
