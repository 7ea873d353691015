package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type queryRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service": "querydesk",
		"endpoints": []string{
			"POST /query", "GET /health", "POST /index-pdfs", "GET /history", "GET /metrics",
		},
		"example": map[string]string{"query": "how old is joe and what is his balance"},
	})
}

func (s *Server) handleQuery(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query must not be empty")
	}

	result, err := s.crew.Process(c.Request().Context(), req.Query)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	s.metrics.ObserveQuery(result)
	s.archive.Save(c.Request().Context(), result)
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleHealth(c echo.Context) error {
	status := http.StatusOK
	body := map[string]any{"status": "healthy"}
	if s.indexer != nil {
		body["documents_indexed"] = s.indexer.Size()
	}
	if s.store != nil {
		if err := s.store.Ping(c.Request().Context()); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = err.Error()
		} else {
			body["database"] = "ok"
		}
	}
	return c.JSON(status, body)
}

func (s *Server) handleIndexPDFs(c echo.Context) error {
	if s.indexer == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "document pipeline not configured")
	}
	report, err := s.indexer.IndexDir(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleHistory(c echo.Context) error {
	if s.archive == nil {
		return echo.NewHTTPError(http.StatusNotFound, "history is not enabled")
	}
	limit := int64(20)
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	entries, err := s.archive.Recent(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"entries": entries})
}
