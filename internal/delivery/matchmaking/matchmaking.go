package matchmaking

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"codeclash/internal/bootstrap"
	authDelivery "codeclash/internal/delivery/auth"
	"codeclash/internal/domain/match"
	errs "codeclash/internal/errors"
	"codeclash/internal/httpresponse"
	mmUC "codeclash/internal/usecase/matchmaking"
	"codeclash/internal/utils"
)

type MatchmakingHandler struct {
	cfg         bootstrap.Config
	log         *zap.SugaredLogger
	matchUC     *mmUC.MatchmakingUseCase
	authHandler *authDelivery.AuthHandler
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewMatchmakingHandler(cfg bootstrap.Config, log *zap.SugaredLogger, matchUC *mmUC.MatchmakingUseCase, authHandler *authDelivery.AuthHandler) *MatchmakingHandler {
	return &MatchmakingHandler{
		cfg:         cfg,
		log:         log,
		matchUC:     matchUC,
		authHandler: authHandler,
	}
}

type MatchFindRequest struct {
	MatchID string `json:"match_id"`
}

type RecentMatchesRequest struct {
	Count int `json:"count"`
}

type SubmitRequest struct {
	MatchID         string `json:"match_id"`
	Code            string `json:"code"`
	Language        string `json:"language"`
	TestCasesPassed int    `json:"test_cases_passed"`
	TotalTestCases  int    `json:"total_test_cases"`
}

type CompleteRequest struct {
	MatchID string `json:"match_id"`
	Winner  string `json:"winner"`
}

// HandleJoin godoc
// @Summary Встать в очередь рангового подбора
// @Description Возвращает либо waiting, либо id созданного матча
// @Tags matchmaking
// @Produce json
// @Success 200 {object} match.JoinResult
// @Failure 400 {object} httpresponse.ErrorResponse
// @Router /matchmaking/join [post]
func (h *MatchmakingHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	userID := h.authHandler.GetUserID(w, r)
	if userID == "" {
		return
	}

	result, err := h.matchUC.Join(r.Context(), userID)
	if err != nil {
		h.log.Errorf("HandleJoin: failed for user %s: %v", userID, err)
		httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
			httpresponse.ErrorResponse{ErrorDescription: "не удалось встать в очередь: " + err.Error()})
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, result)
}

// HandleCancel снимает заявку из очереди. Идемпотентен.
func (h *MatchmakingHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	userID := h.authHandler.GetUserID(w, r)
	if userID == "" {
		return
	}

	if err := h.matchUC.Cancel(r.Context(), userID); err != nil {
		h.log.Errorf("HandleCancel: failed for user %s: %v", userID, err)
		httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
			httpresponse.ErrorResponse{ErrorDescription: "не удалось отменить поиск: " + err.Error()})
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, nil)
}

func (h *MatchmakingHandler) HandleGetMatch(w http.ResponseWriter, r *http.Request) {
	userID := h.authHandler.GetUserID(w, r)
	if userID == "" {
		return
	}

	var req MatchFindRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		h.log.Error("HandleGetMatch: JSON decode error: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: httpresponse.MALFORMEDJSON_errorDesc})
		return
	}

	found, err := h.matchUC.GetMatch(r.Context(), req.MatchID)
	if err != nil {
		if errors.Is(err, errs.ErrMatchNotFound) {
			httpresponse.WriteResponseWithStatus(w, http.StatusNotFound,
				httpresponse.ErrorResponse{ErrorDescription: "Матч не найден"})
			return
		}
		h.log.Errorf("HandleGetMatch: %v", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
			httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, found)
}

func (h *MatchmakingHandler) HandleRecentMatches(w http.ResponseWriter, r *http.Request) {
	userID := h.authHandler.GetUserID(w, r)
	if userID == "" {
		return
	}

	var req RecentMatchesRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		h.log.Error("HandleRecentMatches: JSON decode error: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: httpresponse.MALFORMEDJSON_errorDesc})
		return
	}
	if req.Count <= 0 {
		req.Count = 5
	}

	matches, err := h.matchUC.RecentMatches(r.Context(), userID, req.Count)
	if err != nil {
		h.log.Errorf("HandleRecentMatches: %v", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
			httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, matches)
}

func (h *MatchmakingHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	userID := h.authHandler.GetUserID(w, r)
	if userID == "" {
		return
	}

	var req SubmitRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		h.log.Error("HandleSubmit: JSON decode error: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: httpresponse.MALFORMEDJSON_errorDesc})
		return
	}

	sub := match.Submission{
		Code:            req.Code,
		Language:        req.Language,
		SubmissionTime:  time.Now(),
		TestCasesPassed: req.TestCasesPassed,
		TotalTestCases:  req.TotalTestCases,
	}

	if err := h.matchUC.SubmitSolution(r.Context(), req.MatchID, userID, sub); err != nil {
		h.writeMatchError(w, "HandleSubmit", err)
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, nil)
}

func (h *MatchmakingHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	userID := h.authHandler.GetUserID(w, r)
	if userID == "" {
		return
	}

	var req CompleteRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		h.log.Error("HandleComplete: JSON decode error: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: httpresponse.MALFORMEDJSON_errorDesc})
		return
	}

	if err := h.matchUC.Complete(r.Context(), req.MatchID, req.Winner); err != nil {
		h.writeMatchError(w, "HandleComplete", err)
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, nil)
}

// HandleListen — websocket-поток событий подбора: первое событие
// found с найденным матчем, дальше updated на каждое его изменение.
func (h *MatchmakingHandler) HandleListen(w http.ResponseWriter, r *http.Request) {
	userID := h.authHandler.GetUserID(w, r)
	if userID == "" {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, stop, err := h.matchUC.Listen(ctx, userID)
	if err != nil {
		h.log.Errorf("HandleListen: failed to subscribe for %s: %v", userID, err)
		httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
			httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}
	defer stop()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("HandleListen: upgrade error: ", err)
		return
	}
	defer conn.Close()

	// читатель нужен только чтобы заметить закрытие соединения клиентом
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				stop()
				return
			}
		}
	}()

	for event := range events {
		if err := conn.WriteJSON(event); err != nil {
			h.log.Errorf("HandleListen: write error for %s: %v", userID, err)
			return
		}
	}
}

func (h *MatchmakingHandler) writeMatchError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, errs.ErrMatchNotFound):
		httpresponse.WriteResponseWithStatus(w, http.StatusNotFound,
			httpresponse.ErrorResponse{ErrorDescription: "Матч не найден"})
	case errors.Is(err, errs.ErrNotAParticipant):
		httpresponse.WriteResponseWithStatus(w, http.StatusForbidden,
			httpresponse.ErrorResponse{ErrorDescription: "Пользователь не участвует в этом матче"})
	case errors.Is(err, errs.ErrBadTransition):
		httpresponse.WriteResponseWithStatus(w, http.StatusConflict,
			httpresponse.ErrorResponse{ErrorDescription: "Недопустимый переход статуса матча"})
	default:
		h.log.Errorf("%s: %v", op, err)
		httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
			httpresponse.ErrorResponse{ErrorDescription: err.Error()})
	}
}
