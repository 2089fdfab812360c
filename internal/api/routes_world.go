package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleLocation(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.World.Location())
}

func (s *Server) handleCounts(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.World.Counts())
}

func (s *Server) handlePlayers(c *gin.Context) {
	players := s.deps.World.Players.Snapshot()
	c.JSON(http.StatusOK, gin.H{"players": players, "total": len(players)})
}

// handlePlayer returns one player by id.
func (s *Server) handlePlayer(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid player id"})
		return
	}

	p, ok := s.deps.World.Players.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "player not found", "id": id})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleMobs(c *gin.Context) {
	mobs := s.deps.World.Mobs.Snapshot()
	c.JSON(http.StatusOK, gin.H{"mobs": mobs, "total": len(mobs)})
}

func (s *Server) handleDungeons(c *gin.Context) {
	dungeons := s.deps.World.Dungeons.Snapshot()
	c.JSON(http.StatusOK, gin.H{"dungeons": dungeons, "total": len(dungeons)})
}

func (s *Server) handleWisps(c *gin.Context) {
	wisps := s.deps.World.Wisps.Snapshot()
	c.JSON(http.StatusOK, gin.H{"wisps": wisps, "total": len(wisps)})
}

func (s *Server) handleMovements(c *gin.Context) {
	movements := s.deps.World.Movements.Snapshot()
	c.JSON(http.StatusOK, gin.H{"movements": movements, "total": len(movements)})
}
