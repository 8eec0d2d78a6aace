package services

import (
	"context"
	"fmt"
	"time"

	"greencloud/models"
	"greencloud/repositories"

	"github.com/dustin/go-humanize"
)

type ScoreBreakdown struct {
	Storage      int `json:"storage"`
	EcoMode      int `json:"eco_mode"`
	AutoCleanup  int `json:"auto_cleanup"`
	Duplicates   int `json:"duplicates"`
	Trash        int `json:"trash"`
	Organization int `json:"organization"`
	Total        int `json:"total"`
}

type StorageStats struct {
	TotalFiles       int64 `json:"total_files"`
	TrashFiles       int64 `json:"trash_files"`
	TrashSize        int64 `json:"trash_size"`
	DuplicateGroups  int   `json:"duplicate_groups"`
	DuplicateWaste   int64 `json:"duplicate_waste"`
	PotentialSavings int64 `json:"potential_savings"`
}

// EnvironmentSnapshot is one reading of host resources. Percentages are 0-100.
type EnvironmentSnapshot struct {
	CPUPercent     float64       `json:"cpu_percent"`
	MemoryPercent  float64       `json:"memory_percent"`
	DiskPercent    float64       `json:"disk_percent"`
	HasBattery     bool          `json:"has_battery"`
	BatteryPercent float64       `json:"battery_percent"`
	PowerPlugged   bool          `json:"power_plugged"`
	Uptime         time.Duration `json:"uptime"`
}

// EnvironmentSampler supplies host readings to the energy report. It is never
// needed for the storage score.
type EnvironmentSampler interface {
	Sample(ctx context.Context) (EnvironmentSnapshot, error)
}

type ResourceAlert struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type EnergyReport struct {
	Level    string              `json:"level"`
	Message  string              `json:"message"`
	Score    int                 `json:"score"`
	Alerts   []ResourceAlert     `json:"alerts"`
	Snapshot EnvironmentSnapshot `json:"snapshot"`
}

type GreenOpsService interface {
	Score(ctx context.Context, userID uint) (int, error)
	ScoreBreakdown(ctx context.Context, userID uint) (ScoreBreakdown, error)
	Suggestions(ctx context.Context, userID uint) ([]string, error)
	FindDuplicateGroups(ctx context.Context, userID uint) ([]DuplicateGroup, error)
	StorageStats(ctx context.Context, userID uint) (StorageStats, error)
	EnergyReport(ctx context.Context, userID uint, sampler EnvironmentSampler) (EnergyReport, error)
}

type greenOpsService struct {
	users    repositories.UserRepository
	files    repositories.FileRepository
	settings Settings
}

func NewGreenOpsService(deps Deps) GreenOpsService {
	return &greenOpsService{users: deps.Repos.Users, files: deps.Repos.Files, settings: deps.Settings}
}

// signals is everything the score and the suggestions read, gathered once per call.
type signals struct {
	user       models.User
	stats      repositories.FileStats
	duplicates []DuplicateGroup
}

func (s *greenOpsService) gather(ctx context.Context, userID uint) (signals, error) {
	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		return signals{}, repoError(err, "user not found", "failed to load user")
	}
	stats, err := s.files.Stats(ctx, nil, userID, s.settings.now(), days(s.settings.RetentionDays), days(s.settings.StaleFileDays))
	if err != nil {
		return signals{}, newAppError(KindInternal, "failed to load file statistics", err)
	}
	dups, err := s.FindDuplicateGroups(ctx, userID)
	if err != nil {
		return signals{}, err
	}
	return signals{user: user, stats: stats, duplicates: dups}, nil
}

func (s *greenOpsService) FindDuplicateGroups(ctx context.Context, userID uint) ([]DuplicateGroup, error) {
	files, err := s.files.ListActiveHashed(ctx, nil, userID)
	if err != nil {
		return nil, newAppError(KindInternal, "failed to list files", err)
	}
	return groupDuplicates(files), nil
}

func (s *greenOpsService) Score(ctx context.Context, userID uint) (int, error) {
	b, err := s.ScoreBreakdown(ctx, userID)
	if err != nil {
		return 0, err
	}
	return b.Total, nil
}

func (s *greenOpsService) ScoreBreakdown(ctx context.Context, userID uint) (ScoreBreakdown, error) {
	sig, err := s.gather(ctx, userID)
	if err != nil {
		return ScoreBreakdown{}, err
	}
	return scoreSignals(sig), nil
}

func scoreSignals(sig signals) ScoreBreakdown {
	var b ScoreBreakdown

	switch {
	case sig.user.UsageBelow(50):
		b.Storage = 30
	case sig.user.UsageBelow(70):
		b.Storage = 20
	case sig.user.UsageBelow(90):
		b.Storage = 10
	}
	if sig.user.EcoModeEnabled {
		b.EcoMode = 20
	}
	if sig.user.AutoCleanupEnabled {
		b.AutoCleanup = 15
	}

	switch n := len(sig.duplicates); {
	case n == 0:
		b.Duplicates = 15
	case n < 5:
		b.Duplicates = 10
	case n < 10:
		b.Duplicates = 5
	}

	switch n := sig.stats.TrashedFiles; {
	case n == 0:
		b.Trash = 10
	case n < 5:
		b.Trash = 7
	case n < 10:
		b.Trash = 4
	}

	// no files at all counts as fully organized
	total, inFolders := sig.stats.ActiveFiles, sig.stats.FilesInFolders
	switch {
	case total == 0:
		b.Organization = 10
	case inFolders*100 >= total*80:
		b.Organization = 10
	case inFolders*100 >= total*50:
		b.Organization = 6
	case inFolders*100 >= total*30:
		b.Organization = 3
	}

	b.Total = b.Storage + b.EcoMode + b.AutoCleanup + b.Duplicates + b.Trash + b.Organization
	if b.Total > 100 {
		b.Total = 100
	}
	return b
}

func (s *greenOpsService) Suggestions(ctx context.Context, userID uint) ([]string, error) {
	sig, err := s.gather(ctx, userID)
	if err != nil {
		return nil, err
	}
	return suggest(sig, s.settings.StaleFileDays), nil
}

func suggest(sig signals, staleDays int) []string {
	out := make([]string, 0)

	switch {
	case sig.user.UsageAbove(90):
		out = append(out, "Critical: Storage almost full. Delete unused files immediately.")
	case sig.user.UsageAbove(70):
		out = append(out, "Warning: Storage usage is high. Consider cleanup.")
	}

	if sig.stats.OldTrashFiles > 0 {
		out = append(out, fmt.Sprintf("Empty %d old files from trash to free up space.", sig.stats.OldTrashFiles))
	}

	if n := len(sig.duplicates); n > 0 {
		out = append(out, fmt.Sprintf("Remove %d duplicate file groups to save %s.", n, humanize.IBytes(uint64(wastedBytes(sig.duplicates)))))
	}

	if outside := sig.stats.ActiveFiles - sig.stats.FilesInFolders; outside > 10 {
		out = append(out, fmt.Sprintf("Organize %d files into folders for better management.", outside))
	}

	if !sig.user.EcoModeEnabled {
		out = append(out, "Enable Eco Mode to activate energy-saving features.")
	}
	if !sig.user.AutoCleanupEnabled {
		out = append(out, "Enable Auto Cleanup to automatically remove old trash files.")
	}

	if sig.stats.StaleFiles > 5 {
		out = append(out, fmt.Sprintf("Archive or delete %d files not accessed in %d days.", sig.stats.StaleFiles, staleDays))
	}
	return out
}

func wastedBytes(groups []DuplicateGroup) int64 {
	var total int64
	for _, g := range groups {
		total += g.WastedBytes
	}
	return total
}

func (s *greenOpsService) StorageStats(ctx context.Context, userID uint) (StorageStats, error) {
	sig, err := s.gather(ctx, userID)
	if err != nil {
		return StorageStats{}, err
	}
	waste := wastedBytes(sig.duplicates)
	return StorageStats{
		TotalFiles:       sig.stats.ActiveFiles,
		TrashFiles:       sig.stats.TrashedFiles,
		TrashSize:        sig.stats.TrashedBytes,
		DuplicateGroups:  len(sig.duplicates),
		DuplicateWaste:   waste,
		PotentialSavings: sig.stats.TrashedBytes + waste,
	}, nil
}

func (s *greenOpsService) EnergyReport(ctx context.Context, userID uint, sampler EnvironmentSampler) (EnergyReport, error) {
	if sampler == nil {
		return EnergyReport{}, newAppError(KindValidation, "no environment sampler configured", nil)
	}
	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		return EnergyReport{}, repoError(err, "user not found", "failed to load user")
	}
	snap, err := sampler.Sample(ctx)
	if err != nil {
		return EnergyReport{}, newAppError(KindInternal, "failed to sample environment", err)
	}

	level, message := energyLevel(snap)
	return EnergyReport{
		Level:    level,
		Message:  message,
		Score:    energyScore(snap, user.EcoModeEnabled),
		Alerts:   resourceAlerts(snap),
		Snapshot: snap,
	}, nil
}

func energyLevel(snap EnvironmentSnapshot) (string, string) {
	avg := (snap.CPUPercent + snap.MemoryPercent + snap.DiskPercent) / 3
	switch {
	case avg < 50:
		return "green", "Low usage, eco friendly."
	case avg < 75:
		return "yellow", "Medium usage, consider optimization."
	default:
		return "red", "High usage, action required."
	}
}

func energyScore(snap EnvironmentSnapshot, ecoMode bool) int {
	score := 100
	switch {
	case snap.CPUPercent > 80:
		score -= 20
	case snap.CPUPercent > 60:
		score -= 10
	}
	switch {
	case snap.MemoryPercent > 85:
		score -= 15
	case snap.MemoryPercent > 70:
		score -= 8
	}
	switch {
	case snap.DiskPercent > 90:
		score -= 15
	case snap.DiskPercent > 80:
		score -= 8
	}
	if ecoMode {
		score += 10
	}
	if snap.Uptime > 0 && snap.Uptime < 2*time.Hour {
		score += 5
	}
	return max(0, min(100, score))
}

func resourceAlerts(snap EnvironmentSnapshot) []ResourceAlert {
	alerts := make([]ResourceAlert, 0)
	if snap.CPUPercent > 80 {
		alerts = append(alerts, ResourceAlert{Type: "warning", Message: fmt.Sprintf("High CPU usage detected (%.1f%%)", snap.CPUPercent)})
	}
	if snap.MemoryPercent > 85 {
		alerts = append(alerts, ResourceAlert{Type: "warning", Message: fmt.Sprintf("High memory usage (%.1f%%)", snap.MemoryPercent)})
	}
	if snap.DiskPercent > 80 {
		alerts = append(alerts, ResourceAlert{Type: "danger", Message: fmt.Sprintf("Storage almost full (%.1f%%)", snap.DiskPercent)})
	}
	if snap.HasBattery && !snap.PowerPlugged && snap.BatteryPercent < 20 {
		alerts = append(alerts, ResourceAlert{Type: "warning", Message: "Low battery, enable Eco Mode to save power"})
	}
	return alerts
}
