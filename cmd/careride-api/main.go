// README: Entry point; loads config, wires the distance resolver, scoring engine, and ride services, starts the HTTP server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"careride/internal/ai"
	"careride/internal/config"
	httptransport "careride/internal/http"
	"careride/internal/infra"
	"careride/internal/maps"
	"careride/internal/modules/acceptance"
	"careride/internal/modules/distance"
	"careride/internal/modules/rides"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	var cache distance.Cache
	if cfg.Redis.Addr != "" {
		redisClient := infra.NewRedis(cfg.Redis.Addr)
		defer redisClient.Close()
		cache = distance.NewRedisCache(redisClient)
		log.Printf("distance cache: redis at %s", cfg.Redis.Addr)
	} else {
		cache = distance.NewMemoryCache()
		log.Printf("distance cache: in-memory")
	}

	var matrix distance.MatrixProvider
	if cfg.Maps.APIKey != "" {
		svc, err := maps.NewDistanceService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
		matrix = svc
	} else {
		log.Printf("CARERIDE_MAPS_KEY not set; distances will be estimated")
	}

	resolver := distance.NewResolver(cache, matrix, cfg.Scoring.BatchSize)
	engine := acceptance.NewEngine(resolver, cfg.Scoring)

	rideStore := rides.NewStore(dbPool)
	rideSvc := rides.NewService(rideStore, engine)

	var advisor ai.Advisor
	if cfg.AI.GeminiKey != "" {
		gem, err := ai.NewGeminiAdvisor(ctx, cfg.AI.GeminiKey)
		if err != nil {
			log.Fatalf("gemini init: %v", err)
		}
		defer gem.Close()
		advisor = gem
	} else {
		log.Printf("GEMINI_API_KEY not set; advice endpoint disabled")
	}

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: httptransport.NewRouter(rideSvc, advisor),
	}

	go runCacheCleanup(ctx, cache, time.Duration(cfg.Cache.CleanupMins)*time.Minute)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

// runCacheCleanup sweeps expired distance entries on a fixed interval.
func runCacheCleanup(ctx context.Context, cache distance.Cache, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := cache.Cleanup(ctx); n > 0 {
				log.Printf("distance cache cleanup removed %d entries", n)
			}
		}
	}
}
