package problems

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	errs "codeclash/internal/errors"
	"codeclash/internal/httpresponse"
	problemUC "codeclash/internal/usecase/problems"
)

type ProblemHandler struct {
	log       *zap.SugaredLogger
	problemUC *problemUC.ProblemUseCase
}

func NewProblemHandler(log *zap.SugaredLogger, uc *problemUC.ProblemUseCase) *ProblemHandler {
	return &ProblemHandler{
		log:       log,
		problemUC: uc,
	}
}

func (ph *ProblemHandler) HandleGetProblems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ph.log.Error("Разрешен только метод GET")
		httpresponse.WriteResponseWithStatus(w, http.StatusMethodNotAllowed, "Разрешен только метод GET")
		return
	}

	pageNum := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
				httpresponse.ErrorResponse{ErrorDescription: "Некорректный параметр page"})
			return
		}
		pageNum = parsed
	}

	difficulty := r.URL.Query().Get("difficulty")

	resp, err := ph.problemUC.GetProblemsByDifficultyByPage(r.Context(), difficulty, pageNum)
	if err != nil {
		ph.log.Error(err)
		httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
			httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, resp)
}

func (ph *ProblemHandler) HandleGetProblemByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ph.log.Error("Разрешен только метод GET")
		httpresponse.WriteResponseWithStatus(w, http.StatusMethodNotAllowed, "Разрешен только метод GET")
		return
	}

	problemID, err := strconv.Atoi(r.URL.Query().Get("problem_id"))
	if err != nil {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: "Некорректный параметр problem_id"})
		return
	}

	found, err := ph.problemUC.GetProblemByID(r.Context(), problemID)
	if err != nil {
		if errors.Is(err, errs.ErrProblemNotFound) {
			httpresponse.WriteResponseWithStatus(w, http.StatusNotFound,
				httpresponse.ErrorResponse{ErrorDescription: "Задача не найдена"})
			return
		}
		ph.log.Error(err)
		httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
			httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, found)
}
