package aicontext

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/claritybh/clarity/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	readGroup.GET("/patients/:id/context", h.GetPatientContext)
}

// GetPatientContext assembles and returns a patient context. The three
// assembly outcomes map to distinct responses: success (200), patient not
// found (404), and failure (502 for upstream fetch errors, 500 otherwise).
func (h *Handler) GetPatientContext(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	opts, err := optionsFromQuery(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	pc, err := h.svc.AssemblePatientContext(c.Request().Context(), patientID, opts)
	if err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			return echo.NewHTTPError(http.StatusBadGateway, "record store unavailable")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if pc == nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, pc)
}

func optionsFromQuery(c echo.Context) (Options, error) {
	opts := Options{Purpose: Purpose(c.QueryParam("purpose"))}

	if v := c.QueryParam("max_tokens"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, errors.New("max_tokens must be a positive integer")
		}
		opts.MaxTokens = n
	}
	if v := c.QueryParam("max_sessions"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, errors.New("max_sessions must be a positive integer")
		}
		opts.MaxSessionCount = n
	}
	if v := c.QueryParam("max_assessments"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, errors.New("max_assessments must be a positive integer")
		}
		opts.MaxAssessmentCount = n
	}
	if v := c.QueryParam("include_transcripts"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New("include_transcripts must be a boolean")
		}
		opts.IncludeTranscripts = &b
	}
	return opts, nil
}
