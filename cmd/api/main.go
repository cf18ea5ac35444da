package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	disk "reelsmith/internal/cache/disk"
	"reelsmith/internal/compose"
	"reelsmith/internal/gateway/config"
	"reelsmith/internal/gateway/handler"
	"reelsmith/internal/gateway/middleware"
	asset "reelsmith/internal/gateway/repository/asset"
	generationrepo "reelsmith/internal/gateway/repository/generation"
	generation "reelsmith/internal/gateway/service/generation"
	"reelsmith/internal/gateway/server"
	llmclient "reelsmith/internal/llm/client"
	llm "reelsmith/internal/llm/middleware"
	"reelsmith/internal/sandbox"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gemini, err := llmclient.NewGeminiClient(ctx, os.Getenv("GEMINI_API_KEY"), cfg.LLM.Model, cfg.LLM.TokenCap)
	if err != nil {
		log.Fatalf("init gemini client: %v", err)
	}
	client := llm.Wrap(gemini,
		llm.WithLogging(nil),
		llm.RateLimit(cfg.LLM.RPS, cfg.LLM.Burst),
		llm.Retry(3, 500*time.Millisecond),
		llm.WithHooks(),
	)
	defer client.Close()

	prov := sandbox.NewProvisioner(cfg.Sandbox.Root, cfg.Sandbox.InstallTimeout)
	validator, err := sandbox.NewValidator(prov, cfg.Sandbox.CompileTimeout)
	if err != nil {
		log.Fatalf("init validator: %v", err)
	}

	pipeline := compose.Pipeline{
		LLM:        client,
		Validator:  validator,
		Estimator:  compose.FrameScanEstimator{FPS: compose.ReferenceFPS},
		MaxRetries: cfg.LLM.MaxRetries,
	}

	var assets *asset.S3Store
	if cfg.Asset.Enabled {
		assets, err = asset.NewS3Store(asset.S3Config{
			Endpoint:  cfg.Asset.Endpoint,
			Region:    cfg.Asset.Region,
			AccessKey: cfg.Asset.AccessKey,
			SecretKey: cfg.Asset.SecretKey,
			Bucket:    cfg.Asset.Bucket,
			UseSSL:    cfg.Asset.UseSSL,
		})
		if err != nil {
			log.Fatalf("init asset store: %v", err)
		}
	}

	var runs generation.RunStore
	if cfg.DatabaseURL != "" {
		store, err := generationrepo.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("init run store: %v", err)
		}
		defer store.Close()
		runs = store
	}

	var catalog generation.AssetCatalog
	if assets != nil {
		catalog = assets
	}
	svc, err := generation.New(pipeline, catalog, runs)
	if err != nil {
		log.Fatalf("init generation service: %v", err)
	}

	previews, err := disk.NewPreviewCache(disk.PreviewCacheConfig{
		Root:       cfg.Preview.Root,
		MaxEntries: cfg.Preview.MaxEntries,
		TTL:        cfg.Preview.TTL,
	})
	if err != nil {
		log.Fatalf("init preview cache: %v", err)
	}

	srv := server.New(cfg.Port, middleware.CORS(handler.NewMux(svc, assets, previews)))
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()
	if err := srv.Start(); err != nil {
		log.Fatalf("server: %v", err)
	}
}
