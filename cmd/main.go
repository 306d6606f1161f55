package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"codeclash/internal/adapters"
	"codeclash/internal/blobstore"
	"codeclash/internal/bootstrap"
	authDelivery "codeclash/internal/delivery/auth"
	leaderboardDelivery "codeclash/internal/delivery/leaderboard"
	matchmakingDelivery "codeclash/internal/delivery/matchmaking"
	problemsDelivery "codeclash/internal/delivery/problems"
	profileDelivery "codeclash/internal/delivery/profile"
	ownMiddleware "codeclash/internal/middleware"
	repo "codeclash/internal/repository"
	leaderboardUC "codeclash/internal/usecase/leaderboard"
	matchmakingUC "codeclash/internal/usecase/matchmaking"
	problemsUC "codeclash/internal/usecase/problems"
	profileUC "codeclash/internal/usecase/profile"
)

type mainDeliveryHandler struct {
	auth        *authDelivery.AuthHandler
	profile     *profileDelivery.ProfileHandler
	matchmaking *matchmakingDelivery.MatchmakingHandler
	leaderboard *leaderboardDelivery.LeaderboardHandler
	problems    *problemsDelivery.ProblemHandler
}

type dataBaseAdapters struct {
	redisAdapter *adapters.AdapterRedis
	mongoAdapter *adapters.AdapterMongo
}

func main() {
	logger := NewLogger()
	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Error("Failed to setup configuration", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleShutdown(cancel, logger)

	databaseAdapters := initDatabaseAdapters(ctx, logger, cfg)
	defer databaseAdapters.mongoAdapter.Close(ctx)
	defer databaseAdapters.redisAdapter.Close(ctx)

	blobStorage, err := blobstore.NewS3Storage(ctx, cfg)
	if err != nil {
		logger.Fatal("Не удалось инициализировать S3", zap.Error(err))
	}

	r := chi.NewRouter()
	handlers := initializeDeliveryHandlers(logger, *cfg, databaseAdapters, blobStorage)
	handlers.Router(r, cfg.IsLocalCors)

	port := ":" + cfg.ServerPort
	logger.Infof("Server is running on port %s", port)
	if err := http.ListenAndServe(port, r); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}

func (h *mainDeliveryHandler) Router(r *chi.Mux, isLocalCors bool) {
	if isLocalCors {
		r.Use(ownMiddleware.CORS)
	}
	r.Use(middleware.Logger)

	r.Post("/register", h.auth.Register)
	r.Post("/login", h.auth.Login)
	r.Delete("/logout", h.auth.Logout)
	r.Post("/getUserById", h.auth.GetUserByID)

	r.Post("/profile/get", h.profile.HandleGetProfile)
	r.Post("/profile/update", h.profile.HandleUpdateProfile)
	r.Post("/profile/solved", h.profile.HandleProblemSolved)
	r.Post("/profile/uploadImage", h.profile.HandleUploadImage)

	r.Post("/matchmaking/join", h.matchmaking.HandleJoin)
	r.Post("/matchmaking/cancel", h.matchmaking.HandleCancel)
	r.Get("/matchmaking/listen", h.matchmaking.HandleListen)
	r.Post("/match/get", h.matchmaking.HandleGetMatch)
	r.Post("/match/recent", h.matchmaking.HandleRecentMatches)
	r.Post("/match/submit", h.matchmaking.HandleSubmit)
	r.Post("/match/complete", h.matchmaking.HandleComplete)

	r.Get("/leaderboard", h.leaderboard.HandleTop)
	r.Get("/leaderboard/position", h.leaderboard.HandlePosition)

	r.Get("/problems", h.problems.HandleGetProblems)
	r.Get("/problem", h.problems.HandleGetProblemByID)
}

func initDatabaseAdapters(ctx context.Context, log *zap.SugaredLogger, cfg *bootstrap.Config) *dataBaseAdapters {
	mongoAdapter := adapters.NewAdapterMongo(cfg)
	if err := mongoAdapter.Init(ctx); err != nil {
		log.Fatal("Не удалось инициализировать MongoDB", zap.Error(err))
	}

	redisAdapter := adapters.NewAdapterRedis(cfg)
	if err := redisAdapter.Init(ctx); err != nil {
		log.Fatal("Не удалось инициализировать Redis", zap.Error(err))
	}

	log.Info("Адаптеры баз данных инициализированы")
	return &dataBaseAdapters{
		redisAdapter: redisAdapter,
		mongoAdapter: mongoAdapter,
	}
}

func initializeDeliveryHandlers(
	log *zap.SugaredLogger,
	cfg bootstrap.Config,
	databaseAdapters *dataBaseAdapters,
	blobStorage *blobstore.S3Storage,
) *mainDeliveryHandler {
	mongoDB := databaseAdapters.mongoAdapter.Database
	redisClient := databaseAdapters.redisAdapter.GetClient()

	profileRepo := repo.NewProfileRepository(cfg, log, mongoDB)
	matchRepo := repo.NewMatchRepository(cfg, log, redisClient, mongoDB)
	problemRepo := repo.NewProblemRepository(cfg, log, mongoDB)
	sessionStorage := repo.NewSessionRedisStorage(redisClient)

	profileUsecase := profileUC.NewProfileUseCase(profileRepo, blobStorage, log)
	matchmakingUsecase := matchmakingUC.NewMatchmakingUseCase(matchRepo, problemRepo, profileUsecase, log)
	leaderboardUsecase := leaderboardUC.NewLeaderboardUseCase(profileRepo)
	problemsUsecase := problemsUC.NewProblemUseCase(problemRepo)

	authDeliveryHandler := authDelivery.NewAuthHandler(profileRepo, sessionStorage, log)

	return &mainDeliveryHandler{
		auth:        authDeliveryHandler,
		profile:     profileDelivery.NewProfileHandler(cfg, log, profileUsecase, authDeliveryHandler),
		matchmaking: matchmakingDelivery.NewMatchmakingHandler(cfg, log, matchmakingUsecase, authDeliveryHandler),
		leaderboard: leaderboardDelivery.NewLeaderboardHandler(cfg, log, leaderboardUsecase, authDeliveryHandler),
		problems:    problemsDelivery.NewProblemHandler(log, problemsUsecase),
	}
}

func handleShutdown(cancelFunc context.CancelFunc, log *zap.SugaredLogger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("Received shutdown signal")
	cancelFunc()
	time.Sleep(1 * time.Second) // дать время закрыть соединения
}
