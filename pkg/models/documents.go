package models

// Documents live in the document store. Their shape is nested and varies per
// test, so they are not flattened into columns.

type AssessmentItem struct {
	Key     string           `json:"key" bson:"key"`
	Kind    string           `json:"kind" bson:"kind"`
	Prompt  LocalizedText    `json:"prompt" bson:"prompt"`
	Options []QuestionOption `json:"options,omitempty" bson:"options,omitempty"`
	Extra   map[string]any   `json:"extra,omitempty" bson:"extra,omitempty"`
}

type AssessmentSection struct {
	Key   string           `json:"key" bson:"key"`
	Title LocalizedText    `json:"title" bson:"title"`
	Items []AssessmentItem `json:"items" bson:"items"`
}

// Assessment is an assessment test with its full question tree.
type Assessment struct {
	ID           string              `json:"id" bson:"_id"`
	Code         string              `json:"code" bson:"code"`
	Title        LocalizedText       `json:"title" bson:"title"`
	Description  LocalizedText       `json:"description,omitempty" bson:"description,omitempty"`
	Status       Status              `json:"status" bson:"status"`
	AgeMinMonths int                 `json:"age_min_months" bson:"age_min_months"`
	AgeMaxMonths int                 `json:"age_max_months" bson:"age_max_months"`
	Sections     []AssessmentSection `json:"sections" bson:"sections"`
	Metadata     map[string]any      `json:"metadata,omitempty" bson:"metadata,omitempty"`
	Audit        `bson:",inline"`
}

func (a *Assessment) Validate() error {
	if err := required("assessment", "code", a.Code); err != nil {
		return err
	}
	if err := requiredText("assessment", "title", a.Title); err != nil {
		return err
	}
	if !a.Status.Valid() {
		return invalid("assessment", "status", "unknown value "+string(a.Status))
	}
	seen := make(map[string]bool, len(a.Sections))
	for _, s := range a.Sections {
		if s.Key == "" {
			return invalid("assessment", "sections.key", "is required")
		}
		if seen[s.Key] {
			return invalid("assessment", "sections.key", "duplicate key "+s.Key)
		}
		seen[s.Key] = true
	}
	return ageRange("assessment", a.AgeMinMonths, a.AgeMaxMonths)
}

// ItemCount returns the number of items across all sections.
func (a *Assessment) ItemCount() int {
	n := 0
	for _, s := range a.Sections {
		n += len(s.Items)
	}
	return n
}

type ProgressReport struct {
	ID              string             `json:"id" bson:"_id"`
	ChildID         string             `json:"child_id" bson:"child_id"`
	AssessmentCode  string             `json:"assessment_code,omitempty" bson:"assessment_code,omitempty"`
	PeriodStart     string             `json:"period_start" bson:"period_start"`
	PeriodEnd       string             `json:"period_end" bson:"period_end"`
	OverallScore    float64            `json:"overall_score" bson:"overall_score"`
	DomainScores    map[string]float64 `json:"domain_scores,omitempty" bson:"domain_scores,omitempty"`
	Summary         LocalizedText      `json:"summary,omitempty" bson:"summary,omitempty"`
	Recommendations []string           `json:"recommendations,omitempty" bson:"recommendations,omitempty"`
	Audit           `bson:",inline"`
}

func (r *ProgressReport) Validate() error {
	if err := required("progress_report", "child_id", r.ChildID); err != nil {
		return err
	}
	if err := required("progress_report", "period_start", r.PeriodStart); err != nil {
		return err
	}
	if err := required("progress_report", "period_end", r.PeriodEnd); err != nil {
		return err
	}
	if r.PeriodEnd < r.PeriodStart {
		return invalid("progress_report", "period_end", "must not precede period_start")
	}
	if r.OverallScore < 0 {
		return invalid("progress_report", "overall_score", "must not be negative")
	}
	return nil
}

type QuestionnaireQuestion struct {
	Key     string           `json:"key" bson:"key"`
	Text    LocalizedText    `json:"text" bson:"text"`
	Options []QuestionOption `json:"options,omitempty" bson:"options,omitempty"`
	Weight  float64          `json:"weight" bson:"weight"`
}

// DisorderQuestionnaire screens for one disorder (for example autism or
// ADHD), keyed by DisorderCode.
type DisorderQuestionnaire struct {
	ID           string                  `json:"id" bson:"_id"`
	DisorderCode string                  `json:"disorder_code" bson:"disorder_code"`
	Name         LocalizedText           `json:"name" bson:"name"`
	Status       Status                  `json:"status" bson:"status"`
	Questions    []QuestionnaireQuestion `json:"questions" bson:"questions"`
	ScoringRules map[string]any          `json:"scoring_rules,omitempty" bson:"scoring_rules,omitempty"`
	Audit        `bson:",inline"`
}

func (q *DisorderQuestionnaire) Validate() error {
	if err := required("disorder_questionnaire", "disorder_code", q.DisorderCode); err != nil {
		return err
	}
	if err := requiredText("disorder_questionnaire", "name", q.Name); err != nil {
		return err
	}
	if !q.Status.Valid() {
		return invalid("disorder_questionnaire", "status", "unknown value "+string(q.Status))
	}
	for _, qq := range q.Questions {
		if qq.Weight < 0 {
			return invalid("disorder_questionnaire", "questions.weight", "must not be negative")
		}
	}
	return nil
}
