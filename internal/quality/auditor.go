package quality

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Andrei-Barwood/annotaudit/internal/model"
)

type Options struct {
	Project      string
	Percentile   float64
	ExemptLabel  string
	AuditBaseURL string
	Rules        []Rule
	Logger       logrus.FieldLogger
	Now          func() time.Time
}

// Auditor validates a task snapshot, derives thresholds from it and applies
// the rules to every annotation.
type Auditor struct {
	opts Options
	log  logrus.FieldLogger
}

func New(opts Options) *Auditor {
	if opts.Percentile <= 0 {
		opts.Percentile = DefaultPercentile
	}
	if opts.ExemptLabel == "" {
		opts.ExemptLabel = LabelNonVisibleFace
	}
	if opts.AuditBaseURL == "" {
		opts.AuditBaseURL = model.DefaultAuditBaseURL
	}
	if len(opts.Rules) == 0 {
		opts.Rules = DefaultRules(opts.ExemptLabel)
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		opts.Logger = l
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Auditor{opts: opts, log: opts.Logger}
}

type entry struct {
	task       model.Task
	annotation model.Annotation
}

// Run audits tasks in input order. Malformed records are skipped and listed
// in the result; an empty dataset yields no issues and no error.
func (a *Auditor) Run(tasks []model.Task) (model.RunResult, error) {
	result := model.RunResult{
		RunID:       uuid.NewString(),
		GeneratedAt: a.opts.Now().UTC(),
		Project:     a.opts.Project,
		Tasks:       len(tasks),
		Issues:      []model.Issue{},
	}

	valid := make([]entry, 0)
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			a.skip(&result, model.Skipped{TaskID: t.TaskID, Reason: err.Error()}, err)
			continue
		}
		for _, ann := range t.Response.Annotations {
			result.Annotations++
			if err := ann.Validate(); err != nil {
				var me *model.MalformedAnnotationError
				if errors.As(err, &me) {
					me.TaskID = t.TaskID
				}
				a.skip(&result, model.Skipped{TaskID: t.TaskID, UUID: ann.UUID, Reason: err.Error()}, err)
				continue
			}
			valid = append(valid, entry{task: t, annotation: ann})
		}
	}

	annotations := make([]model.Annotation, 0, len(valid))
	for _, e := range valid {
		annotations = append(annotations, e.annotation)
	}

	th, err := ComputeThresholds(annotations, a.opts.Percentile)
	if errors.Is(err, model.ErrEmptyDataset) {
		a.log.Warn("no valid annotations; nothing to audit")
		result.Notes = append(result.Notes, "dataset contains no valid annotations; no checks were run")
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("compute thresholds: %w", err)
	}
	result.Thresholds = &th

	widths, heights := dimensions(annotations)
	result.Widths = Distribution(widths, a.opts.Percentile)
	result.Heights = Distribution(heights, a.opts.Percentile)

	a.log.WithFields(logrus.Fields{
		"percentile": th.Percentile,
		"width":      th.Width,
		"height":     th.Height,
		"boxes":      len(annotations),
	}).Info("computed size thresholds")

	for _, e := range valid {
		issue, err := Evaluate(e.task, e.annotation, th, a.opts.Rules, a.opts.AuditBaseURL)
		if err != nil {
			return result, err
		}
		if issue == nil {
			continue
		}
		a.log.WithFields(logrus.Fields{
			"task_id":  issue.TaskID,
			"uuid":     issue.UUID,
			"severity": issue.EscalationSeverity,
		}).Debug("flagged annotation")
		result.Issues = append(result.Issues, *issue)
	}

	return result, nil
}

func (a *Auditor) skip(result *model.RunResult, s model.Skipped, err error) {
	a.log.WithError(err).WithField("task_id", s.TaskID).Warn("skipping malformed record")
	result.Skipped = append(result.Skipped, s)
	result.Notes = append(result.Notes, fmt.Sprintf("skipped: %s", s.Reason))
}
