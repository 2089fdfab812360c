package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/riftwatch/riftwatch/internal/util"
)

// Version is reported by the public endpoints.
const Version = "1.0.0"

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "riftwatch",
		"version": Version,
	})
}

// handleInfo returns the sniffer identity and host information.
func (s *Server) handleInfo(c *gin.Context) {
	sysInfo := util.GetSystemInfo()

	c.JSON(http.StatusOK, gin.H{
		"name":            s.deps.Identity.Name,
		"region":          s.deps.Identity.Region,
		"version":         Version,
		"hostname":        sysInfo.Hostname,
		"os":              sysInfo.OS,
		"cpu_model":       sysInfo.CPUModel,
		"cpu_cores":       sysInfo.CPUCores,
		"total_memory_mb": sysInfo.TotalMemory,
	})
}
