package profile

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"codeclash/internal/bootstrap"
	authDelivery "codeclash/internal/delivery/auth"
	"codeclash/internal/domain/user"
	errs "codeclash/internal/errors"
	"codeclash/internal/httpresponse"
	profileUC "codeclash/internal/usecase/profile"
	"codeclash/internal/utils"
)

type ProfileHandler struct {
	cfg         bootstrap.Config
	log         *zap.SugaredLogger
	profileUC   *profileUC.ProfileUseCase
	authHandler *authDelivery.AuthHandler
}

func NewProfileHandler(cfg bootstrap.Config, log *zap.SugaredLogger, uc *profileUC.ProfileUseCase, authHandler *authDelivery.AuthHandler) *ProfileHandler {
	return &ProfileHandler{
		cfg:         cfg,
		log:         log,
		profileUC:   uc,
		authHandler: authHandler,
	}
}

type ProfileGetRequest struct {
	UserID string `json:"user_id"`
}

type ProblemSolvedRequest struct {
	ProblemID        int `json:"problem_id"`
	SolveTimeSeconds int `json:"solve_time_seconds"`
}

type UploadImageResponse struct {
	URL string `json:"url"`
}

// HandleGetProfile отдаёт профиль. Отсутствующий профиль не ошибка —
// он создаётся с нулевой статистикой.
func (h *ProfileHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := h.authHandler.GetUserID(w, r)
	if userID == "" {
		return
	}

	var req ProfileGetRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		h.log.Error("HandleGetProfile: JSON decode error: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: httpresponse.MALFORMEDJSON_errorDesc})
		return
	}
	if req.UserID == "" {
		req.UserID = userID
	}

	found, err := h.profileUC.GetUserProfile(r.Context(), req.UserID)
	if err != nil {
		h.log.Errorf("HandleGetProfile: %v", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
			httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, found)
}

func (h *ProfileHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := h.authHandler.GetUserID(w, r)
	if userID == "" {
		return
	}

	var patch user.ProfilePatch
	if err := utils.DecodeJSONRequest(r, &patch); err != nil {
		h.log.Error("HandleUpdateProfile: JSON decode error: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: httpresponse.MALFORMEDJSON_errorDesc})
		return
	}

	if err := h.profileUC.UpdateUserProfile(r.Context(), userID, patch); err != nil {
		if errors.Is(err, errs.ErrPermissionDenied) {
			httpresponse.WriteResponseWithStatus(w, http.StatusForbidden,
				httpresponse.ErrorResponse{ErrorDescription: "Нет прав на изменение этого профиля"})
			return
		}
		h.log.Errorf("HandleUpdateProfile: %v", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
			httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, nil)
}

// HandleProblemSolved отмечает задачу решённой; повторная отправка
// того же problem_id — успех без изменений.
func (h *ProfileHandler) HandleProblemSolved(w http.ResponseWriter, r *http.Request) {
	userID := h.authHandler.GetUserID(w, r)
	if userID == "" {
		return
	}

	var req ProblemSolvedRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		h.log.Error("HandleProblemSolved: JSON decode error: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: httpresponse.MALFORMEDJSON_errorDesc})
		return
	}

	if err := h.profileUC.UpdateProblemSolved(r.Context(), userID, req.ProblemID, req.SolveTimeSeconds); err != nil {
		h.log.Errorf("HandleProblemSolved: %v", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
			httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, nil)
}

// HandleUploadImage принимает multipart-файл аватара. Тип и размер
// проверяются до похода в хранилище.
func (h *ProfileHandler) HandleUploadImage(w http.ResponseWriter, r *http.Request) {
	userID := h.authHandler.GetUserID(w, r)
	if userID == "" {
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		h.log.Error("HandleUploadImage: failed to read form file: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: "Не удалось прочитать файл из запроса"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.log.Error("HandleUploadImage: failed to read file: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: "Не удалось прочитать файл"})
		return
	}

	url, err := h.profileUC.UploadProfileImage(r.Context(), userID, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrNotAnImage):
			httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
				httpresponse.ErrorResponse{ErrorDescription: "Можно загружать только изображения"})
		case errors.Is(err, errs.ErrImageTooLarge):
			httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
				httpresponse.ErrorResponse{ErrorDescription: "Размер изображения не должен превышать 5MB"})
		default:
			h.log.Errorf("HandleUploadImage: %v", err)
			httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
				httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		}
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, UploadImageResponse{URL: url})
}
