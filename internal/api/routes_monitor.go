package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/riftwatch/riftwatch/internal/util"
)

// handleStats returns pipeline counters and process resource use.
func (s *Server) handleStats(c *gin.Context) {
	resp := gin.H{"world": s.deps.World.Counts()}

	if s.deps.Dispatcher != nil {
		resp["dispatcher"] = s.deps.Dispatcher.Stats()
	}
	if s.deps.Pipeline != nil {
		resp["pipeline"] = s.deps.Pipeline.Stats()
	}
	if s.deps.Bus != nil {
		resp["bus"] = s.deps.Bus.Stats()
	}

	proc, err := util.GetProcessStats()
	if err != nil {
		s.logger.Debug().Err(err).Msg("process stats unavailable")
	}
	resp["process"] = proc

	c.JSON(http.StatusOK, resp)
}

// handleLogEntries returns recent log entries, optionally only those of one
// component.
func (s *Server) handleLogEntries(c *gin.Context) {
	count, err := strconv.Atoi(c.DefaultQuery("count", "100"))
	if err != nil || count < 1 {
		count = 100
	}
	if count > 1000 {
		count = 1000
	}

	entries, err := readRecentLogEntries(s.deps.LogDir, count, c.Query("component"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

type logEntry struct {
	Timestamp string                 `json:"timestamp,omitempty"`
	Level     string                 `json:"level,omitempty"`
	Component string                 `json:"component,omitempty"`
	Handler   string                 `json:"handler,omitempty"`
	Event     string                 `json:"event,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Keys lifted out of a log line into logEntry fields.
var liftedLogKeys = map[string]bool{
	"level": true, "time": true, "message": true, "caller": true, "app": true,
	"component": true, "handler": true, "event": true,
}

// readRecentLogEntries parses the last count lines of the newest riftwatch log
// file. A non-empty component keeps only lines logged by that component.
func readRecentLogEntries(logDir string, count int, component string) ([]logEntry, error) {
	names, err := util.LogFiles(logDir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return []logEntry{}, nil
	}

	data, err := os.ReadFile(filepath.Join(logDir, names[len(names)-1]))
	if err != nil {
		return nil, err
	}

	var entries []logEntry
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		entry := parseLogLine(line)
		if component != "" && entry.Component != component {
			continue
		}
		entries = append(entries, entry)
	}

	if len(entries) > count {
		entries = entries[len(entries)-count:]
	}
	if entries == nil {
		entries = []logEntry{}
	}
	return entries, nil
}

func parseLogLine(line string) logEntry {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		// console format
		return logEntry{Message: line}
	}

	entry := logEntry{
		Timestamp: stringField(raw, "time"),
		Level:     stringField(raw, "level"),
		Component: stringField(raw, "component"),
		Handler:   stringField(raw, "handler"),
		Event:     stringField(raw, "event"),
		Message:   stringField(raw, "message"),
	}
	for k, v := range raw {
		if liftedLogKeys[k] {
			continue
		}
		if entry.Fields == nil {
			entry.Fields = make(map[string]interface{})
		}
		entry.Fields[k] = v
	}
	return entry
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		return fmt.Sprintf("%v", v)
	}
	return ""
}
