package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fyrsmithlabs/novenad/internal/content"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// errInvalidExpand is returned for an expand query value other than 0 or 1.
var errInvalidExpand = errors.New("invalid expand flag (want 0 or 1)")

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Novenas     int    `json:"novenas"`
	GlobalTexts int    `json:"globalTexts"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:      "ok",
		Novenas:     s.snapshot.Store.Len(),
		GlobalTexts: s.snapshot.Registry.Len(),
	})
}

// handleListNovenas returns the catalog, optionally filtered by ?tag=.
func (s *Server) handleListNovenas(c echo.Context) error {
	tag := c.QueryParam("tag")
	out := make([]content.Summary, 0, s.snapshot.Store.Len())
	for _, n := range s.snapshot.Store.List() {
		if tag != "" && !n.HasTag(tag) {
			continue
		}
		out = append(out, n.Summary())
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetNovena(c echo.Context) error {
	n, err := s.snapshot.Store.Get(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
}

func (s *Server) handleGetDay(c echo.Context) error {
	n, err := s.snapshot.Store.Get(c.Param("id"))
	if err != nil {
		return err
	}
	number, err := strconv.Atoi(c.Param("dia"))
	if err != nil {
		return fmt.Errorf("%w: %q is not an integer", content.ErrInvalidDay, c.Param("dia"))
	}
	expand, err := parseExpand(c.QueryParam("expand"))
	if err != nil {
		return err
	}
	if err := n.CheckDay(number); err != nil {
		return err
	}

	if !expand {
		raw, err := s.engine.RawDay(n, number)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, raw)
	}

	day, err := s.engine.ExpandDay(n, number)
	if err != nil {
		if !errors.Is(err, content.ErrNotFound) {
			s.logger.Error("day expansion failed",
				zap.String("novena.id", n.ID),
				zap.Int("day", number),
				zap.Error(err),
			)
		}
		return err
	}
	return c.JSON(http.StatusOK, day)
}

func parseExpand(v string) (bool, error) {
	switch v {
	case "", "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", errInvalidExpand, v)
	}
}

func (s *Server) handleListGlobalTexts(c echo.Context) error {
	return c.JSON(http.StatusOK, s.snapshot.Registry.All())
}

func (s *Server) handleGetGlobalText(c echo.Context) error {
	t, err := s.snapshot.Registry.Get(c.Param("key"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}
