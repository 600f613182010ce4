package model

import "time"

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

const DefaultAuditBaseURL = "https://dashboard.scale.com/audit"

// Task is one labeling task as returned by the tasks endpoint.
type Task struct {
	TaskID   string       `json:"task_id"`
	Params   TaskParams   `json:"params"`
	Response TaskResponse `json:"response"`

	// badField names a field whose JSON value had the wrong type.
	badField string
}

type TaskParams struct {
	Attachment string `json:"attachment"`
}

type TaskResponse struct {
	Annotations []Annotation `json:"annotations"`
}

// Annotation is a single labeled box. Dimensions are pointers so a missing
// field can be told apart from a zero value.
type Annotation struct {
	UUID       string         `json:"uuid"`
	Label      string         `json:"label"`
	Width      *float64       `json:"width"`
	Height     *float64       `json:"height"`
	Attributes map[string]any `json:"attributes"`

	badField string
}

func (a Annotation) BackgroundColor() string {
	s, _ := a.Attributes["background_color"].(string)
	return s
}

// W and H return the box dimensions, zero when absent. Call Validate first.
func (a Annotation) W() float64 {
	if a.Width == nil {
		return 0
	}
	return *a.Width
}

func (a Annotation) H() float64 {
	if a.Height == nil {
		return 0
	}
	return *a.Height
}

func (a Annotation) Validate() error {
	switch {
	case a.badField != "":
		return &MalformedAnnotationError{UUID: a.UUID, Field: a.badField, Invalid: true}
	case a.UUID == "":
		return &MalformedAnnotationError{UUID: a.UUID, Field: "uuid"}
	case a.Label == "":
		return &MalformedAnnotationError{UUID: a.UUID, Field: "label"}
	case a.Width == nil:
		return &MalformedAnnotationError{UUID: a.UUID, Field: "width"}
	case a.Height == nil:
		return &MalformedAnnotationError{UUID: a.UUID, Field: "height"}
	}
	if _, ok := a.Attributes["background_color"].(string); !ok {
		return &MalformedAnnotationError{UUID: a.UUID, Field: "attributes.background_color"}
	}
	return nil
}

func (t Task) Validate() error {
	if t.badField != "" {
		return &MalformedTaskError{TaskID: t.TaskID, Field: t.badField, Invalid: true}
	}
	if t.TaskID == "" {
		return &MalformedTaskError{Field: "task_id"}
	}
	if t.Params.Attachment == "" {
		return &MalformedTaskError{TaskID: t.TaskID, Field: "params.attachment"}
	}
	return nil
}

// Thresholds holds the per-dimension percentile cut-offs for a dataset.
type Thresholds struct {
	Percentile float64 `json:"percentile"`
	Width      float64 `json:"percentileWidth"`
	Height     float64 `json:"percentileHeight"`
}

// Issue is one flagged annotation in the results file.
type Issue struct {
	TaskID             string   `json:"taskId"`
	UUID               string   `json:"uuid"`
	Label              string   `json:"label"`
	Height             float64  `json:"height"`
	Width              float64  `json:"width"`
	Image              string   `json:"image"`
	AuditLink          string   `json:"auditLink"`
	EscalationSeverity Severity `json:"escalationSeverity"`
	EscalationMessages string   `json:"escalationMessages"`
}

const (
	RuleAttributeConsistency = "attribute_consistency"
	RuleUnusualBoxSize       = "unusual_box_size"
)

// RuleID maps an issue back to the rule that raised it. Each built-in rule
// owns exactly one severity.
func (i Issue) RuleID() string {
	if i.EscalationSeverity == SeverityError {
		return RuleAttributeConsistency
	}
	return RuleUnusualBoxSize
}

func AuditLink(base, taskID string) string {
	if base == "" {
		base = DefaultAuditBaseURL
	}
	return base + "?taskId=" + taskID
}

type Distribution struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Pct    float64 `json:"percentile"`
}

type Skipped struct {
	TaskID string `json:"task_id,omitempty"`
	UUID   string `json:"uuid,omitempty"`
	Reason string `json:"reason"`
}

// RunResult carries run metadata for summaries. Only Issues is written to the
// results file.
type RunResult struct {
	RunID       string       `json:"run_id"`
	GeneratedAt time.Time    `json:"generated_at"`
	Project     string       `json:"project,omitempty"`
	Tasks       int          `json:"tasks"`
	Annotations int          `json:"annotations"`
	Thresholds  *Thresholds  `json:"thresholds,omitempty"`
	Widths      Distribution `json:"widths"`
	Heights     Distribution `json:"heights"`
	Skipped     []Skipped    `json:"skipped,omitempty"`
	Issues      []Issue      `json:"issues"`
	Notes       []string     `json:"notes,omitempty"`
}
