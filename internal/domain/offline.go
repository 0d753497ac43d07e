package domain

import "time"

// OfflineFormatVersion tags the snapshot layout written by this build.
const OfflineFormatVersion = "1.0.0"

// OfflineModuleRecord is a denormalized snapshot of a module kept for disconnected use.
type OfflineModuleRecord struct {
	ModuleID     string    `json:"moduleId"`
	Module       Module    `json:"module"`
	DownloadedAt time.Time `json:"downloadedAt"`
	Version      string    `json:"version"`
	Size         int64     `json:"size"` // estimated bytes
}

// OfflineSection is one section of an offline snapshot, keyed by module, lesson and section.
type OfflineSection struct {
	Key          string    `json:"id"`
	ModuleID     string    `json:"moduleId"`
	LessonID     string    `json:"lessonId"`
	SectionID    string    `json:"sectionId"`
	Section      Section   `json:"content"`
	DownloadedAt time.Time `json:"downloadedAt"`
}

// OfflineSectionKey builds the composite section key.
func OfflineSectionKey(moduleID, lessonID, sectionID string) string {
	return moduleID + "-" + lessonID + "-" + sectionID
}

// StorageUsage reports the estimated bytes used against the budget.
type StorageUsage struct {
	Used  int64 `json:"used"`
	Total int64 `json:"total"`
}
