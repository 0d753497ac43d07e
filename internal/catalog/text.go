package catalog

import (
	"strings"

	"cx-lms-service/internal/domain"
)

// SectionText flattens a section's payload to plain text. Generic sections yield their body.
func SectionText(s domain.Section) string {
	if s.Content == nil {
		return ""
	}
	t := &textCollector{}
	s.Content.Accept(t)
	return strings.Join(t.parts, "\n")
}

// SearchHit locates a section whose title or text matched a query.
type SearchHit struct {
	ModuleID  string `json:"moduleId"`
	LessonID  string `json:"lessonId"`
	SectionID string `json:"sectionId"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet"`
}

// Search does a case-insensitive substring match across section titles and text.
func (c *Catalog) Search(query string) []SearchHit {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var hits []SearchHit
	for _, m := range c.modules {
		for _, l := range m.Lessons {
			for _, s := range l.Sections {
				text := SectionText(s)
				lower := strings.ToLower(text)
				idx := strings.Index(lower, q)
				if idx < 0 && !strings.Contains(strings.ToLower(s.Title), q) {
					continue
				}
				hits = append(hits, SearchHit{
					ModuleID:  m.ID,
					LessonID:  l.ID,
					SectionID: s.ID,
					Title:     s.Title,
					Snippet:   snippet(text, idx, len(q)),
				})
			}
		}
	}
	return hits
}

func snippet(text string, idx, n int) string {
	const pad = 40
	if idx < 0 {
		idx, n = 0, 0
	}
	start := idx - pad
	if start < 0 {
		start = 0
	}
	end := idx + n + pad
	if end > len(text) {
		end = len(text)
	}
	return strings.TrimSpace(strings.ToValidUTF8(text[start:end], ""))
}

type textCollector struct {
	parts []string
}

func (t *textCollector) add(s ...string) {
	for _, p := range s {
		if p != "" {
			t.parts = append(t.parts, p)
		}
	}
}

func (t *textCollector) VisitText(c domain.TextContent) { t.add(c.Body) }
func (t *textCollector) VisitPillars(c domain.PillarsContent) {
	for _, i := range c.Items {
		t.add(i.Title, i.Description)
	}
}
func (t *textCollector) VisitStats(c domain.StatsContent) {
	for _, i := range c.Items {
		t.add(i.Value+" "+i.Label, i.Description)
	}
}
func (t *textCollector) VisitList(c domain.ListContent) { t.add(c.Items...) }
func (t *textCollector) VisitMatrix(c domain.MatrixContent) {
	for _, q := range c.Quadrants {
		t.add(q.Position, q.Title, q.Description)
	}
}
func (t *textCollector) VisitScorecard(c domain.ScorecardContent) {
	for _, m := range c.Metrics {
		t.add(m.Metric)
	}
}
func (t *textCollector) VisitSequence(c domain.SequenceContent) {
	for _, s := range c.Items {
		t.add(s.Stage)
		t.add(s.Touchpoints...)
		t.add(s.Emotions...)
	}
}
func (t *textCollector) VisitLevels(c domain.LevelsContent) {
	for _, l := range c.Items {
		t.add(l.Level, l.Description)
	}
}
func (t *textCollector) VisitChannels(c domain.ChannelsContent) {
	for _, ch := range c.Items {
		t.add(ch.Channel, ch.Description)
	}
}
func (t *textCollector) VisitTriggers(c domain.TriggersContent) {
	for _, g := range c.Items {
		t.add(g.Type)
		t.add(g.Triggers...)
	}
}
func (t *textCollector) VisitMetrics(c domain.MetricsContent) {
	for _, m := range c.Items {
		t.add(m.Metric, m.Description)
	}
}
func (t *textCollector) VisitFrameworkSteps(c domain.FrameworkStepsContent) {
	for _, s := range c.Steps {
		t.add(s.Step, s.Description)
	}
}
func (t *textCollector) VisitTechniques(c domain.TechniquesContent) {
	for _, s := range c.Items {
		t.add(s.Technique, s.Description, s.Example)
	}
}
func (t *textCollector) VisitPartnership(c domain.PartnershipContent) {
	for _, p := range c.Items {
		t.add(p.Type)
		t.add(p.Tasks...)
	}
}
func (t *textCollector) VisitRegulations(c domain.RegulationsContent) {
	for _, r := range c.Items {
		t.add(r.Regulation)
		t.add(r.Requirements...)
	}
}
func (t *textCollector) VisitCommunicationGuide(c domain.CommunicationGuideContent) {
	for _, s := range c.Steps {
		t.add(s.Step, s.Description, s.Example)
	}
}
func (t *textCollector) VisitSearchTips(c domain.SearchTipsContent) {
	for _, s := range c.Items {
		t.add(s.Tip, s.What, s.Example)
	}
}
func (t *textCollector) VisitFormula(c domain.FormulaContent) { t.add(c.Body) }
func (t *textCollector) VisitShortcuts(c domain.ShortcutsContent) {
	for _, s := range c.Items {
		t.add(s.Keys + " " + s.Action)
	}
}
func (t *textCollector) VisitExercise(c domain.ExerciseContent) {
	t.add(c.Body)
	t.add(c.Prompts...)
}
func (t *textCollector) VisitTechnique(c domain.TechniqueContent) {
	t.add(c.Body)
	t.add(c.Steps...)
}
func (t *textCollector) VisitEmotions(c domain.EmotionsContent) {
	for _, e := range c.Items {
		t.add(e.Emotion, e.Description, e.Response)
	}
}
func (t *textCollector) VisitCRMSections(c domain.CRMSectionsContent) {
	for _, s := range c.Items {
		t.add(s.Section)
		t.add(s.Fields...)
	}
}
func (t *textCollector) VisitComparison(c domain.ComparisonContent) {
	for _, r := range c.Items {
		t.add(r.Aspect, r.Before, r.After)
	}
}
func (t *textCollector) VisitProtocol(c domain.ProtocolContent) {
	for _, s := range c.Steps {
		t.add(s.Step, s.Action)
	}
}
func (t *textCollector) VisitGeneric(c domain.GenericContent) { t.add(c.Body) }
