package handlers

import (
	"context"
	"net/http"
	"time"

	"greencloud/services"
	"greencloud/utils"

	"github.com/gin-gonic/gin"
)

// EnergySampleRequest carries host readings taken by an external monitor.
type EnergySampleRequest struct {
	CPUPercent     float64 `json:"cpu_percent" binding:"min=0,max=100"`
	MemoryPercent  float64 `json:"memory_percent" binding:"min=0,max=100"`
	DiskPercent    float64 `json:"disk_percent" binding:"min=0,max=100"`
	HasBattery     bool    `json:"has_battery"`
	BatteryPercent float64 `json:"battery_percent" binding:"min=0,max=100"`
	PowerPlugged   bool    `json:"power_plugged"`
	UptimeSeconds  int64   `json:"uptime_seconds" binding:"min=0"`
}

// reportedSampler replays one snapshot posted by the client.
type reportedSampler struct {
	snap services.EnvironmentSnapshot
}

func (s reportedSampler) Sample(context.Context) (services.EnvironmentSnapshot, error) {
	return s.snap, nil
}

// GetGreenScore returns the caller's GreenOps score.
func GetGreenScore(c *gin.Context) {
	score, err := getServices().GreenOps.Score(c.Request.Context(), currentUserID(c))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"score": score})
}

// GetScoreBreakdown returns the points earned per scoring signal.
func GetScoreBreakdown(c *gin.Context) {
	breakdown, err := getServices().GreenOps.ScoreBreakdown(c.Request.Context(), currentUserID(c))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, breakdown)
}

// GetSuggestions returns cleanup suggestions in priority order.
func GetSuggestions(c *gin.Context) {
	suggestions, err := getServices().GreenOps.Suggestions(c.Request.Context(), currentUserID(c))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"suggestions": suggestions})
}

// GetDuplicates lists groups of active files with identical content.
func GetDuplicates(c *gin.Context) {
	groups, err := getServices().GreenOps.FindDuplicateGroups(c.Request.Context(), currentUserID(c))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"groups": groups, "count": len(groups)})
}

// GetStorageStats returns file, trash and duplicate counters.
func GetStorageStats(c *gin.Context) {
	stats, err := getServices().GreenOps.StorageStats(c.Request.Context(), currentUserID(c))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, stats)
}

// PostEnergyReport scores host readings posted by an external monitor.
func PostEnergyReport(c *gin.Context) {
	var req EnergySampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	sampler := reportedSampler{snap: services.EnvironmentSnapshot{
		CPUPercent:     req.CPUPercent,
		MemoryPercent:  req.MemoryPercent,
		DiskPercent:    req.DiskPercent,
		HasBattery:     req.HasBattery,
		BatteryPercent: req.BatteryPercent,
		PowerPlugged:   req.PowerPlugged,
		Uptime:         time.Duration(req.UptimeSeconds) * time.Second,
	}}
	report, err := getServices().GreenOps.EnergyReport(c.Request.Context(), currentUserID(c), sampler)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, report)
}
