package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gridopt/internal/api/models"
	"gridopt/internal/network"
)

// ListComponents handles GET /api/v1/components
func ListComponents(c *gin.Context) {
	out := make([]models.ComponentInfo, 0, len(network.AllKinds))
	for _, k := range network.AllKinds {
		caps := k.Caps()
		out = append(out, models.ComponentInfo{
			Kind:          k.String(),
			OnePort:       caps.OnePort,
			PassiveBranch: caps.PassiveBranch,
			HasNominal:    caps.HasNominal,
			HasCommitment: caps.HasCommitment,
			HasRamp:       caps.HasRamp,
		})
	}
	c.JSON(http.StatusOK, gin.H{"components": out})
}
