package quality

import (
	"errors"

	"github.com/Andrei-Barwood/annotaudit/internal/model"
)

const (
	LabelNonVisibleFace      = "non_visible_face"
	ColorNotApplicable       = "not_applicable"
	MessageAttributeMismatch = "The 'not_applicable' background color should be used for the 'non_visible_face' label. Use the 'other' background color for the other labels."
	MessageUnusualBoxSize    = "Both the width and height of the box seem unusually larger than 95% of all the boxes in the project. It seems risky but could be OK."
)

// Rule is a single quality check over a validated annotation.
type Rule interface {
	ID() string
	Severity() model.Severity
	Message() string
	Match(a model.Annotation, th model.Thresholds) bool
}

// AttributeConsistency flags annotations that use the not_applicable
// background color with any label other than the exempt one.
type AttributeConsistency struct {
	ExemptLabel string
}

func (AttributeConsistency) ID() string               { return model.RuleAttributeConsistency }
func (AttributeConsistency) Severity() model.Severity { return model.SeverityError }
func (AttributeConsistency) Message() string          { return MessageAttributeMismatch }

func (r AttributeConsistency) Match(a model.Annotation, _ model.Thresholds) bool {
	exempt := r.ExemptLabel
	if exempt == "" {
		exempt = LabelNonVisibleFace
	}
	return a.Label != exempt && a.BackgroundColor() == ColorNotApplicable
}

// UnusualBoxSize flags boxes strictly larger than the threshold in both
// dimensions.
type UnusualBoxSize struct{}

func (UnusualBoxSize) ID() string               { return model.RuleUnusualBoxSize }
func (UnusualBoxSize) Severity() model.Severity { return model.SeverityWarning }
func (UnusualBoxSize) Message() string          { return MessageUnusualBoxSize }

func (UnusualBoxSize) Match(a model.Annotation, th model.Thresholds) bool {
	return a.W() > th.Width && a.H() > th.Height
}

// DefaultRules returns the built-in rules in priority order.
func DefaultRules(exemptLabel string) []Rule {
	return []Rule{
		AttributeConsistency{ExemptLabel: exemptLabel},
		UnusualBoxSize{},
	}
}

// Evaluate runs rules in order against one annotation and returns an issue
// for the first match, or nil when none match.
func Evaluate(task model.Task, a model.Annotation, th model.Thresholds, rules []Rule, auditBase string) (*model.Issue, error) {
	if err := a.Validate(); err != nil {
		var me *model.MalformedAnnotationError
		if errors.As(err, &me) {
			me.TaskID = task.TaskID
		}
		return nil, err
	}

	for _, r := range rules {
		if !r.Match(a, th) {
			continue
		}
		return &model.Issue{
			TaskID:             task.TaskID,
			UUID:               a.UUID,
			Label:              a.Label,
			Height:             a.H(),
			Width:              a.W(),
			Image:              task.Params.Attachment,
			AuditLink:          model.AuditLink(auditBase, task.TaskID),
			EscalationSeverity: r.Severity(),
			EscalationMessages: r.Message(),
		}, nil
	}
	return nil, nil
}
