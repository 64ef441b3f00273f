package main // Entry point package

import (
    "context"
    "log" // Logging library

    "github.com/joho/godotenv"    // Loads .env files into the environment
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/iliyamo/screen-slot-reservation/internal/booking"
    "github.com/iliyamo/screen-slot-reservation/internal/clock"
    "github.com/iliyamo/screen-slot-reservation/internal/config" // Internal config loader
    "github.com/iliyamo/screen-slot-reservation/internal/database"
    "github.com/iliyamo/screen-slot-reservation/internal/handler"
    "github.com/iliyamo/screen-slot-reservation/internal/inventory"
    "github.com/iliyamo/screen-slot-reservation/internal/middleware"
    "github.com/iliyamo/screen-slot-reservation/internal/queue"
    "github.com/iliyamo/screen-slot-reservation/internal/repository"
    "github.com/iliyamo/screen-slot-reservation/internal/router" // Internal router setup
    queue_publisher "github.com/iliyamo/screen-slot-reservation/internal/service"
)

func main() {
    // .env is optional; real deployments set the environment directly.
    _ = godotenv.Load()

    cfg := config.Load() // Load environment config

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    // Redis backs the draft store, the rate limiter and the public response
    // cache.  The client may be nil when Redis is unreachable; the draft
    // store is the only consumer that cannot run without it.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Fatal("redis: required for draft selections, check REDIS_ADDR")
    }

    clk := clock.NewSystem()

    // Repositories.
    screens := repository.NewScreenRepo(db)
    campaigns := repository.NewCampaignRepo(db)
    bundles := repository.NewBundleRepo(db)
    proposals := repository.NewProposalRepo(db)
    holds := repository.NewHoldRepo(db)
    drafts := repository.NewDraftStore(rdb, cfg.DraftTTL)

    // Domain services.
    inv := inventory.NewProvider(db, screens, clk)
    selection := booking.NewSelectionManager(drafts, inv, clk)
    assembler := booking.NewAssembler(drafts, screens, bundles, campaigns, clk)
    pricer := booking.NewPricer(screens)
    pipeline := booking.NewPipeline(proposals, bundles, inv, pricer, clk)
    holdMgr := booking.NewHoldManager(holds, proposals, bundles, clk, cfg.HoldTTL)
    committer := booking.NewCommitter(holds, proposals, campaigns, clk, queue_publisher.CommitNotifier{})

    e := echo.New()

    // The token bucket guards every route; the response cache wraps only the
    // public catalog so authenticated responses are never cached.
    rlCfg := config.LoadRateLimitConfig()
    if rlCfg.Enabled {
        e.Use(middleware.NewTokenBucket(rlCfg, rdb))
    }
    var publicMW []echo.MiddlewareFunc
    cacheCfg := config.LoadCacheConfig()
    if cacheCfg.Enabled {
        publicMW = append(publicMW, middleware.NewRedisCache(cacheCfg, rdb))
    }

    router.RegisterRoutes(e) // Register application routes
    router.RegisterPublic(e, handler.NewPublicHandler(screens), publicMW...)
    router.RegisterAdvertiser(e, handler.NewAdvertiserHandler(
        campaigns, proposals, bundles, inv, selection, assembler, pricer, pipeline, holdMgr, committer,
    ), cfg.JWTSecret)

    // Background workers: the hold sweeper expires due holds and their
    // proposals, and the commit consumer drains the RabbitMQ queue.
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    go holdMgr.Sweep(ctx, cfg.SweepInterval, log.Printf)
    go func() {
        if err := queue.StartCommitConsumer(); err != nil {
            log.Printf("commit consumer stopped: %v", err)
        }
    }()

    addr := ":" + cfg.Port                                // Address string with port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

    if err := e.Start(addr); err != nil { // Start HTTP server
        log.Fatal(err) // Log and exit if server fails
    }
}
