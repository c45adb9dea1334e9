package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gridopt/internal/api/models"
	"gridopt/internal/build"
	"gridopt/internal/config"
	"gridopt/internal/lp"
	"gridopt/internal/network"
)

// ModelHandler builds optimization models from posted network descriptions.
type ModelHandler struct {
	log *zap.Logger
}

func NewModelHandler(log *zap.Logger) *ModelHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ModelHandler{log: log}
}

// BuildModel handles POST /api/v1/model
func (h *ModelHandler) BuildModel(c *gin.Context) {
	var req models.BuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	n, cfg, errResp := h.parseNetwork(req.NetworkYAML)
	if errResp != nil {
		c.JSON(http.StatusBadRequest, *errResp)
		return
	}

	ctx := build.Context{
		LinearizedUC: req.Options.LinearizedUC || cfg.Options.LinearizedUC,
		Tangents:     req.Options.LossTangents,
		Start:        req.Options.WindowStart,
		End:          req.Options.WindowEnd,
		Log:          h.log,
	}
	if ctx.Tangents == 0 {
		ctx.Tangents = cfg.Options.LossTangents
	}
	if ctx.End == 0 {
		ctx.End = cfg.Options.WindowEnd
	}
	if ctx.Start == 0 {
		ctx.Start = cfg.Options.WindowStart
	}
	end := ctx.End
	if end == 0 {
		end = n.Snapshots().Len()
	}
	if ctx.Start < 0 || end > n.Snapshots().Len() || ctx.Start >= end {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_WINDOW",
				Message: "build window is out of range",
				Details: map[string]interface{}{
					"start":   ctx.Start,
					"end":     ctx.End,
					"horizon": n.Snapshots().Len(),
				},
			},
		})
		return
	}

	m, err := build.Build(n, ctx)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "BUILD_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	resp := models.BuildResponse{
		Status: "completed",
		Summary: models.BuildSummary{
			Variables:   m.NumVars(),
			Constraints: m.NumCons(),
			Snapshots:   n.Snapshots().Len(),
			Objective:   len(m.Objective()),
		},
	}
	for _, g := range m.Constraints() {
		resp.Groups = append(resp.Groups, models.GroupSummary{
			Name: g.Key.String(),
			Rows: len(g.Rows),
		})
	}
	if req.Options.IncludeLP {
		var sb strings.Builder
		if err := lp.WriteLP(&sb, m); err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    "LP_WRITE_ERROR",
					Message: err.Error(),
				},
			})
			return
		}
		resp.LP = sb.String()
	}
	c.JSON(http.StatusOK, resp)
}

// ValidateNetwork handles POST /api/v1/validate
func (h *ModelHandler) ValidateNetwork(c *gin.Context) {
	var req models.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	n, _, errResp := h.parseNetwork(req.NetworkYAML)
	if errResp != nil {
		c.JSON(http.StatusBadRequest, *errResp)
		return
	}

	counts := make(map[string]int)
	for _, k := range network.AllKinds {
		if t := n.Table(k); !t.Empty() {
			counts[k.String()] = t.Len()
		}
	}
	c.JSON(http.StatusOK, models.ValidateResponse{
		Status:     "valid",
		Components: counts,
		Snapshots:  n.Snapshots().Len(),
	})
}

func (h *ModelHandler) parseNetwork(raw string) (*network.Network, *config.Config, *models.ErrorResponse) {
	cfg, err := config.Parse([]byte(raw))
	if err != nil {
		return nil, nil, &models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_YAML",
				Message: err.Error(),
			},
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, &models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_NETWORK",
				Message: err.Error(),
			},
		}
	}
	n, err := cfg.Network()
	if err != nil {
		return nil, nil, &models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_NETWORK",
				Message: err.Error(),
			},
		}
	}
	return n, cfg, nil
}
