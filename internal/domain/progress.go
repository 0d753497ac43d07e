package domain

import (
	"fmt"
	"time"
)

// Theme is the UI colour scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

// FontSize is the reading size preference.
type FontSize string

const (
	FontSmall  FontSize = "sm"
	FontBase   FontSize = "base"
	FontLarge  FontSize = "lg"
	FontXLarge FontSize = "xl"
)

// Settings are the learner's persisted preferences.
type Settings struct {
	SoundOn      bool     `json:"soundOn"`
	ReduceMotion bool     `json:"reduceMotion"`
	Theme        Theme    `json:"theme"`
	FontSize     FontSize `json:"fontSize"`
}

// DefaultSettings mirrors a fresh install.
func DefaultSettings() Settings {
	return Settings{SoundOn: true, ReduceMotion: false, Theme: ThemeDark, FontSize: FontBase}
}

// SettingsPatch is a partial update; nil fields are left unchanged.
type SettingsPatch struct {
	SoundOn      *bool     `json:"soundOn,omitempty"`
	ReduceMotion *bool     `json:"reduceMotion,omitempty"`
	Theme        *Theme    `json:"theme,omitempty"`
	FontSize     *FontSize `json:"fontSize,omitempty"`
}

// Apply returns s with the patch applied, rejecting unknown theme or font size values.
func (s Settings) Apply(p SettingsPatch) (Settings, error) {
	if p.SoundOn != nil {
		s.SoundOn = *p.SoundOn
	}
	if p.ReduceMotion != nil {
		s.ReduceMotion = *p.ReduceMotion
	}
	if p.Theme != nil {
		switch *p.Theme {
		case ThemeLight, ThemeDark, ThemeAuto:
			s.Theme = *p.Theme
		default:
			return s, fmt.Errorf("%w: theme %q", ErrInvalidSettings, *p.Theme)
		}
	}
	if p.FontSize != nil {
		switch *p.FontSize {
		case FontSmall, FontBase, FontLarge, FontXLarge:
			s.FontSize = *p.FontSize
		default:
			return s, fmt.Errorf("%w: font size %q", ErrInvalidSettings, *p.FontSize)
		}
	}
	return s, nil
}

// JournalEntry is the learner's reflection for a lesson.
type JournalEntry struct {
	LessonID  string    `json:"lessonId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Certificate is issued once a module is fully complete. The ID doubles as verification code.
type Certificate struct {
	ID               string    `json:"id"`
	StudentName      string    `json:"studentName"`
	ModuleID         string    `json:"moduleId"`
	ModuleTitle      string    `json:"moduleTitle"`
	CompletionDate   string    `json:"completionDate"`
	VerificationCode string    `json:"verificationCode"`
	Score            *int      `json:"score,omitempty"`
	GeneratedAt      time.Time `json:"generatedAt"`
}

// Progress is the persisted part of a learner's state.
type Progress struct {
	CompletedLessons []string                `json:"completedLessons"`
	QuizResponses    map[string]QuizResponse `json:"quizResponses"`
	Journal          map[string]JournalEntry `json:"journal"`
	Certificates     []Certificate           `json:"certificates"`
	Settings         Settings                `json:"settings"`
}

// NewProgress returns empty progress with default settings.
func NewProgress() Progress {
	return Progress{
		CompletedLessons: []string{},
		QuizResponses:    map[string]QuizResponse{},
		Journal:          map[string]JournalEntry{},
		Certificates:     []Certificate{},
		Settings:         DefaultSettings(),
	}
}

// Normalize replaces nil collections so decoded documents behave like fresh ones.
func (p *Progress) Normalize() {
	if p.CompletedLessons == nil {
		p.CompletedLessons = []string{}
	}
	if p.QuizResponses == nil {
		p.QuizResponses = map[string]QuizResponse{}
	}
	if p.Journal == nil {
		p.Journal = map[string]JournalEntry{}
	}
	if p.Certificates == nil {
		p.Certificates = []Certificate{}
	}
	if p.Settings.Theme == "" && p.Settings.FontSize == "" {
		p.Settings = DefaultSettings()
	}
}

// Clone returns a deep copy.
func (p Progress) Clone() Progress {
	out := Progress{
		CompletedLessons: append([]string{}, p.CompletedLessons...),
		QuizResponses:    make(map[string]QuizResponse, len(p.QuizResponses)),
		Journal:          make(map[string]JournalEntry, len(p.Journal)),
		Certificates:     make([]Certificate, 0, len(p.Certificates)),
		Settings:         p.Settings,
	}
	for k, v := range p.QuizResponses {
		v.Answers = append([]Answer{}, v.Answers...)
		out.QuizResponses[k] = v
	}
	for k, v := range p.Journal {
		out.Journal[k] = v
	}
	for _, c := range p.Certificates {
		if c.Score != nil {
			score := *c.Score
			c.Score = &score
		}
		out.Certificates = append(out.Certificates, c)
	}
	return out
}

// HasCompleted reports whether lessonID is in the completed set.
func (p Progress) HasCompleted(lessonID string) bool {
	for _, id := range p.CompletedLessons {
		if id == lessonID {
			return true
		}
	}
	return false
}

// Navigation holds the session-only cursors; never persisted.
type Navigation struct {
	ModuleID  string `json:"currentModuleId,omitempty"`
	LessonID  string `json:"currentLessonId,omitempty"`
	SectionID string `json:"currentSectionId,omitempty"`
}

// UIState holds session-only panel toggles.
type UIState struct {
	SidebarOpen   bool `json:"sidebarOpen"`
	JournalOpen   bool `json:"journalOpen"`
	PresenterMode bool `json:"presenterMode"`
}

// ProgressSummary is a derived completion view.
type ProgressSummary struct {
	CompletedCount int `json:"completedCount"`
	TotalLessons   int `json:"totalLessons"`
	Percentage     int `json:"percentage"`
}

// AnalyticsEventType enumerates learner activity events.
type AnalyticsEventType string

const (
	EventLessonStarted   AnalyticsEventType = "lessonStarted"
	EventLessonCompleted AnalyticsEventType = "lessonCompleted"
	EventSectionViewed   AnalyticsEventType = "sectionViewed"
	EventQuizAttempted   AnalyticsEventType = "quizAttempted"
	EventQuizCompleted   AnalyticsEventType = "quizCompleted"
)

// AnalyticsEvent describes one learner activity. Events are logged, not shipped anywhere.
type AnalyticsEvent struct {
	ID        string             `json:"id"`
	Type      AnalyticsEventType `json:"eventType"`
	LearnerID string             `json:"learnerId"`
	ModuleID  string             `json:"moduleId,omitempty"`
	LessonID  string             `json:"lessonId,omitempty"`
	SectionID string             `json:"sectionId,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Duration  time.Duration      `json:"duration,omitempty"`
	Metadata  map[string]any     `json:"metadata,omitempty"`
}
