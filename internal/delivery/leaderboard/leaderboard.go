package leaderboard

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"codeclash/internal/bootstrap"
	authDelivery "codeclash/internal/delivery/auth"
	"codeclash/internal/httpresponse"
	lbUC "codeclash/internal/usecase/leaderboard"
)

type LeaderboardHandler struct {
	cfg         bootstrap.Config
	log         *zap.SugaredLogger
	lbUC        *lbUC.LeaderboardUseCase
	authHandler *authDelivery.AuthHandler
}

func NewLeaderboardHandler(cfg bootstrap.Config, log *zap.SugaredLogger, uc *lbUC.LeaderboardUseCase, authHandler *authDelivery.AuthHandler) *LeaderboardHandler {
	return &LeaderboardHandler{
		cfg:         cfg,
		log:         log,
		lbUC:        uc,
		authHandler: authHandler,
	}
}

type PositionResponse struct {
	Position int `json:"position"`
}

// HandleTop godoc
// @Summary Лидерборд
// @Description Топ игроков по очкам; category=rankPoints — по ранговым очкам
// @Tags leaderboard
// @Produce json
// @Param category query string false "global | rankPoints"
// @Param limit query int false "размер страницы"
// @Router /leaderboard [get]
func (h *LeaderboardHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = lbUC.CategoryGlobal
	}

	limit := h.cfg.PageLimitLeaderboard
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
				httpresponse.ErrorResponse{ErrorDescription: "Некорректный параметр limit"})
			return
		}
		limit = parsed
	}

	entries, err := h.lbUC.Top(r.Context(), category, limit)
	if err != nil {
		h.log.Errorf("HandleTop: %v", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
			httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, entries)
}

func (h *LeaderboardHandler) HandlePosition(w http.ResponseWriter, r *http.Request) {
	userID := h.authHandler.GetUserID(w, r)
	if userID == "" {
		return
	}

	category := r.URL.Query().Get("category")
	if category == "" {
		category = lbUC.CategoryGlobal
	}

	position, err := h.lbUC.UserPosition(r.Context(), userID, category)
	if err != nil {
		h.log.Errorf("HandlePosition: %v", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
			httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, PositionResponse{Position: position})
}
