package domain

import "encoding/json"

// SectionKind tags the payload shape of a section.
type SectionKind string

const (
	KindText               SectionKind = "text"
	KindPillars            SectionKind = "pillars"
	KindStats              SectionKind = "stats"
	KindList               SectionKind = "list"
	KindMatrix             SectionKind = "matrix"
	KindScorecard          SectionKind = "scorecard"
	KindSequence           SectionKind = "sequence"
	KindLevels             SectionKind = "levels"
	KindChannels           SectionKind = "channels"
	KindTriggers           SectionKind = "triggers"
	KindMetrics            SectionKind = "metrics"
	KindFrameworkSteps     SectionKind = "framework-steps"
	KindTechniques         SectionKind = "techniques"
	KindPartnership        SectionKind = "partnership"
	KindRegulations        SectionKind = "regulations"
	KindCommunicationGuide SectionKind = "communication-guide"
	KindSearchTips         SectionKind = "search-tips"
	KindFormula            SectionKind = "formula"
	KindShortcuts          SectionKind = "shortcuts"
	KindExercise           SectionKind = "exercise"
	KindTechnique          SectionKind = "technique"
	KindEmotions           SectionKind = "emotions"
	KindCRMSections        SectionKind = "crm-sections"
	KindComparison         SectionKind = "comparison"
	KindProtocol           SectionKind = "protocol"
)

// Content is the typed payload of a section. Implementations are limited to the
// types in this file; anything the decoder does not recognize becomes GenericContent.
type Content interface {
	Kind() SectionKind
	Accept(v ContentVisitor)
}

// ContentVisitor has one method per section kind plus the generic fallback, so a
// visitor that compiles handles every kind.
type ContentVisitor interface {
	VisitText(TextContent)
	VisitPillars(PillarsContent)
	VisitStats(StatsContent)
	VisitList(ListContent)
	VisitMatrix(MatrixContent)
	VisitScorecard(ScorecardContent)
	VisitSequence(SequenceContent)
	VisitLevels(LevelsContent)
	VisitChannels(ChannelsContent)
	VisitTriggers(TriggersContent)
	VisitMetrics(MetricsContent)
	VisitFrameworkSteps(FrameworkStepsContent)
	VisitTechniques(TechniquesContent)
	VisitPartnership(PartnershipContent)
	VisitRegulations(RegulationsContent)
	VisitCommunicationGuide(CommunicationGuideContent)
	VisitSearchTips(SearchTipsContent)
	VisitFormula(FormulaContent)
	VisitShortcuts(ShortcutsContent)
	VisitExercise(ExerciseContent)
	VisitTechnique(TechniqueContent)
	VisitEmotions(EmotionsContent)
	VisitCRMSections(CRMSectionsContent)
	VisitComparison(ComparisonContent)
	VisitProtocol(ProtocolContent)
	VisitGeneric(GenericContent)
}

type Pillar struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Stat struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

type Quadrant struct {
	Position    string `json:"position"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ScoreMetric struct {
	Metric  string  `json:"metric"`
	Weight  float64 `json:"weight"`
	Current float64 `json:"current"`
	Target  float64 `json:"target"`
}

type Stage struct {
	Stage       string   `json:"stage"`
	Touchpoints []string `json:"touchpoints"`
	Emotions    []string `json:"emotions"`
}

type Level struct {
	Level       string `json:"level"`
	Description string `json:"description"`
}

type Channel struct {
	Channel      string `json:"channel"`
	Description  string `json:"description"`
	ResponseRate string `json:"response_rate,omitempty"`
}

type TriggerGroup struct {
	Type     string   `json:"type"`
	Triggers []string `json:"triggers"`
}

type Metric struct {
	Metric      string `json:"metric"`
	Value       string `json:"value"`
	Trend       string `json:"trend,omitempty"`
	Description string `json:"description,omitempty"`
}

type FrameworkStep struct {
	Step        string `json:"step"`
	Description string `json:"description"`
	Timing      string `json:"timing,omitempty"`
}

type Technique struct {
	Technique   string `json:"technique"`
	Description string `json:"description"`
	Example     string `json:"example,omitempty"`
}

type Partnership struct {
	Type       string   `json:"type"`
	Tasks      []string `json:"tasks"`
	Efficiency string   `json:"efficiency,omitempty"`
	Value      string   `json:"value,omitempty"`
}

type Regulation struct {
	Regulation   string   `json:"regulation"`
	Requirements []string `json:"requirements"`
}

type CommunicationStep struct {
	Step        string `json:"step"`
	Description string `json:"description"`
	Example     string `json:"example,omitempty"`
}

type SearchTip struct {
	Tip     string `json:"tip"`
	What    string `json:"what"`
	Example string `json:"example,omitempty"`
}

type Shortcut struct {
	Keys   string `json:"keys"`
	Action string `json:"action"`
}

type Emotion struct {
	Emotion     string `json:"emotion"`
	Description string `json:"description"`
	Response    string `json:"response,omitempty"`
}

type CRMSection struct {
	Section string   `json:"section"`
	Fields  []string `json:"fields"`
}

type Comparison struct {
	Aspect string `json:"aspect"`
	Before string `json:"before"`
	After  string `json:"after"`
}

type ProtocolStep struct {
	Step   string `json:"step"`
	Action string `json:"action"`
}

type TextContent struct {
	Body string `json:"body"`
}

type PillarsContent struct {
	Items []Pillar `json:"items"`
}

type StatsContent struct {
	Items []Stat `json:"items"`
}

type ListContent struct {
	Items []string `json:"items"`
}

type MatrixContent struct {
	Quadrants []Quadrant `json:"quadrants"`
}

type ScorecardContent struct {
	Metrics []ScoreMetric `json:"metrics"`
}

type SequenceContent struct {
	Items []Stage `json:"items"`
}

type LevelsContent struct {
	Items []Level `json:"items"`
}

type ChannelsContent struct {
	Items []Channel `json:"items"`
}

type TriggersContent struct {
	Items []TriggerGroup `json:"items"`
}

type MetricsContent struct {
	Items []Metric `json:"items"`
}

type FrameworkStepsContent struct {
	Steps []FrameworkStep `json:"steps"`
}

type TechniquesContent struct {
	Items []Technique `json:"items"`
}

type PartnershipContent struct {
	Items []Partnership `json:"items"`
}

type RegulationsContent struct {
	Items []Regulation `json:"items"`
}

type CommunicationGuideContent struct {
	Steps []CommunicationStep `json:"steps"`
}

type SearchTipsContent struct {
	Items []SearchTip `json:"items"`
}

type FormulaContent struct {
	Body string `json:"body"`
}

type ShortcutsContent struct {
	Items []Shortcut `json:"items"`
}

type ExerciseContent struct {
	Body    string   `json:"body"`
	Prompts []string `json:"items,omitempty"`
}

type TechniqueContent struct {
	Body  string   `json:"body"`
	Steps []string `json:"steps,omitempty"`
}

type EmotionsContent struct {
	Items []Emotion `json:"items"`
}

type CRMSectionsContent struct {
	Items []CRMSection `json:"items"`
}

type ComparisonContent struct {
	Items []Comparison `json:"items"`
}

type ProtocolContent struct {
	Steps []ProtocolStep `json:"steps"`
}

// GenericContent holds a section whose kind is not recognized. It is rendered as
// plain text from Body and re-encoded from Raw so nothing is lost.
type GenericContent struct {
	OriginalKind SectionKind     `json:"-"`
	Body         string          `json:"body,omitempty"`
	Raw          json.RawMessage `json:"-"`
}

func (TextContent) Kind() SectionKind               { return KindText }
func (PillarsContent) Kind() SectionKind            { return KindPillars }
func (StatsContent) Kind() SectionKind              { return KindStats }
func (ListContent) Kind() SectionKind               { return KindList }
func (MatrixContent) Kind() SectionKind             { return KindMatrix }
func (ScorecardContent) Kind() SectionKind          { return KindScorecard }
func (SequenceContent) Kind() SectionKind           { return KindSequence }
func (LevelsContent) Kind() SectionKind             { return KindLevels }
func (ChannelsContent) Kind() SectionKind           { return KindChannels }
func (TriggersContent) Kind() SectionKind           { return KindTriggers }
func (MetricsContent) Kind() SectionKind            { return KindMetrics }
func (FrameworkStepsContent) Kind() SectionKind     { return KindFrameworkSteps }
func (TechniquesContent) Kind() SectionKind         { return KindTechniques }
func (PartnershipContent) Kind() SectionKind        { return KindPartnership }
func (RegulationsContent) Kind() SectionKind        { return KindRegulations }
func (CommunicationGuideContent) Kind() SectionKind { return KindCommunicationGuide }
func (SearchTipsContent) Kind() SectionKind         { return KindSearchTips }
func (FormulaContent) Kind() SectionKind            { return KindFormula }
func (ShortcutsContent) Kind() SectionKind          { return KindShortcuts }
func (ExerciseContent) Kind() SectionKind           { return KindExercise }
func (TechniqueContent) Kind() SectionKind          { return KindTechnique }
func (EmotionsContent) Kind() SectionKind           { return KindEmotions }
func (CRMSectionsContent) Kind() SectionKind        { return KindCRMSections }
func (ComparisonContent) Kind() SectionKind         { return KindComparison }
func (ProtocolContent) Kind() SectionKind           { return KindProtocol }
func (g GenericContent) Kind() SectionKind          { return g.OriginalKind }

func (c TextContent) Accept(v ContentVisitor)               { v.VisitText(c) }
func (c PillarsContent) Accept(v ContentVisitor)            { v.VisitPillars(c) }
func (c StatsContent) Accept(v ContentVisitor)              { v.VisitStats(c) }
func (c ListContent) Accept(v ContentVisitor)               { v.VisitList(c) }
func (c MatrixContent) Accept(v ContentVisitor)             { v.VisitMatrix(c) }
func (c ScorecardContent) Accept(v ContentVisitor)          { v.VisitScorecard(c) }
func (c SequenceContent) Accept(v ContentVisitor)           { v.VisitSequence(c) }
func (c LevelsContent) Accept(v ContentVisitor)             { v.VisitLevels(c) }
func (c ChannelsContent) Accept(v ContentVisitor)           { v.VisitChannels(c) }
func (c TriggersContent) Accept(v ContentVisitor)           { v.VisitTriggers(c) }
func (c MetricsContent) Accept(v ContentVisitor)            { v.VisitMetrics(c) }
func (c FrameworkStepsContent) Accept(v ContentVisitor)     { v.VisitFrameworkSteps(c) }
func (c TechniquesContent) Accept(v ContentVisitor)         { v.VisitTechniques(c) }
func (c PartnershipContent) Accept(v ContentVisitor)        { v.VisitPartnership(c) }
func (c RegulationsContent) Accept(v ContentVisitor)        { v.VisitRegulations(c) }
func (c CommunicationGuideContent) Accept(v ContentVisitor) { v.VisitCommunicationGuide(c) }
func (c SearchTipsContent) Accept(v ContentVisitor)         { v.VisitSearchTips(c) }
func (c FormulaContent) Accept(v ContentVisitor)            { v.VisitFormula(c) }
func (c ShortcutsContent) Accept(v ContentVisitor)          { v.VisitShortcuts(c) }
func (c ExerciseContent) Accept(v ContentVisitor)           { v.VisitExercise(c) }
func (c TechniqueContent) Accept(v ContentVisitor)          { v.VisitTechnique(c) }
func (c EmotionsContent) Accept(v ContentVisitor)           { v.VisitEmotions(c) }
func (c CRMSectionsContent) Accept(v ContentVisitor)        { v.VisitCRMSections(c) }
func (c ComparisonContent) Accept(v ContentVisitor)         { v.VisitComparison(c) }
func (c ProtocolContent) Accept(v ContentVisitor)           { v.VisitProtocol(c) }
func (c GenericContent) Accept(v ContentVisitor)            { v.VisitGeneric(c) }

// MarshalJSON re-emits the original object when the section was decoded from JSON.
func (g GenericContent) MarshalJSON() ([]byte, error) {
	if len(g.Raw) > 0 {
		return g.Raw, nil
	}
	type plain struct {
		Body string `json:"body,omitempty"`
	}
	return json.Marshal(plain{Body: g.Body})
}

// decodeContent maps a kind tag to its payload type. Unknown kinds fall back to GenericContent.
func decodeContent(kind SectionKind, data []byte) (Content, error) {
	switch kind {
	case KindText:
		return decodeAs[TextContent](data)
	case KindPillars:
		return decodeAs[PillarsContent](data)
	case KindStats:
		return decodeAs[StatsContent](data)
	case KindList:
		return decodeAs[ListContent](data)
	case KindMatrix:
		return decodeAs[MatrixContent](data)
	case KindScorecard:
		return decodeAs[ScorecardContent](data)
	case KindSequence:
		return decodeAs[SequenceContent](data)
	case KindLevels:
		return decodeAs[LevelsContent](data)
	case KindChannels:
		return decodeAs[ChannelsContent](data)
	case KindTriggers:
		return decodeAs[TriggersContent](data)
	case KindMetrics:
		return decodeAs[MetricsContent](data)
	case KindFrameworkSteps:
		return decodeAs[FrameworkStepsContent](data)
	case KindTechniques:
		return decodeAs[TechniquesContent](data)
	case KindPartnership:
		return decodeAs[PartnershipContent](data)
	case KindRegulations:
		return decodeAs[RegulationsContent](data)
	case KindCommunicationGuide:
		return decodeAs[CommunicationGuideContent](data)
	case KindSearchTips:
		return decodeAs[SearchTipsContent](data)
	case KindFormula:
		return decodeAs[FormulaContent](data)
	case KindShortcuts:
		return decodeAs[ShortcutsContent](data)
	case KindExercise:
		return decodeAs[ExerciseContent](data)
	case KindTechnique:
		return decodeAs[TechniqueContent](data)
	case KindEmotions:
		return decodeAs[EmotionsContent](data)
	case KindCRMSections:
		return decodeAs[CRMSectionsContent](data)
	case KindComparison:
		return decodeAs[ComparisonContent](data)
	case KindProtocol:
		return decodeAs[ProtocolContent](data)
	}
	g := GenericContent{OriginalKind: kind, Raw: append(json.RawMessage(nil), data...)}
	var body struct {
		Body string `json:"body"`
	}
	// A body that is not a string is simply dropped.
	if err := json.Unmarshal(data, &body); err == nil {
		g.Body = body.Body
	}
	return g, nil
}

func decodeAs[T Content](data []byte) (Content, error) {
	var c T
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return c, nil
}
