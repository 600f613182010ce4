package quality

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Andrei-Barwood/annotaudit/internal/model"
)

var testTask = model.Task{
	TaskID: "5f127f6f26831d0010e985e5",
	Params: model.TaskParams{Attachment: "https://example.com/img/1.jpg"},
}

var testThresholds = model.Thresholds{Percentile: 95, Width: 100, Height: 100}

func TestEvaluate_NonVisibleFaceNotApplicableIsAllowed(t *testing.T) {
	a := box("u1", LabelNonVisibleFace, ColorNotApplicable, 10, 10)

	issue, err := Evaluate(testTask, a, testThresholds, DefaultRules(""), "")
	require.NoError(t, err)
	assert.Nil(t, issue)
}

func TestEvaluate_AttributeConsistencyError(t *testing.T) {
	a := box("u2", "car", ColorNotApplicable, 10, 10)

	issue, err := Evaluate(testTask, a, testThresholds, DefaultRules(""), "")
	require.NoError(t, err)
	require.NotNil(t, issue)

	assert.Equal(t, model.Issue{
		TaskID:             testTask.TaskID,
		UUID:               "u2",
		Label:              "car",
		Height:             10,
		Width:              10,
		Image:              "https://example.com/img/1.jpg",
		AuditLink:          "https://dashboard.scale.com/audit?taskId=5f127f6f26831d0010e985e5",
		EscalationSeverity: model.SeverityError,
		EscalationMessages: MessageAttributeMismatch,
	}, *issue)
}

func TestEvaluate_ErrorTakesPriorityOverWarning(t *testing.T) {
	a := box("u3", "car", ColorNotApplicable, 1000, 1000)

	issue, err := Evaluate(testTask, a, testThresholds, DefaultRules(""), "")
	require.NoError(t, err)
	require.NotNil(t, issue)
	assert.Equal(t, model.SeverityError, issue.EscalationSeverity)
}

func TestEvaluate_UnusualBoxSizeWarning(t *testing.T) {
	a := box("u4", "car", "green", 101, 101)

	issue, err := Evaluate(testTask, a, testThresholds, DefaultRules(""), "")
	require.NoError(t, err)
	require.NotNil(t, issue)
	assert.Equal(t, model.SeverityWarning, issue.EscalationSeverity)
	assert.Equal(t, MessageUnusualBoxSize, issue.EscalationMessages)
	assert.Equal(t, model.RuleUnusualBoxSize, issue.RuleID())
}

func TestEvaluate_UnusualBoxSizeNeedsBothDimensions(t *testing.T) {
	cases := []struct {
		name string
		w, h float64
	}{
		{"only width", 500, 50},
		{"only height", 50, 500},
		{"height on boundary", 500, 100},
		{"width on boundary", 100, 500},
		{"both on boundary", 100, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := box("u5", "car", "other", tc.w, tc.h)
			issue, err := Evaluate(testTask, a, testThresholds, DefaultRules(""), "")
			require.NoError(t, err)
			assert.Nil(t, issue)
		})
	}
}

func TestEvaluate_CustomExemptLabelAndAuditBase(t *testing.T) {
	a := box("u6", "hidden", ColorNotApplicable, 10, 10)

	issue, err := Evaluate(testTask, a, testThresholds, DefaultRules("hidden"), "")
	require.NoError(t, err)
	assert.Nil(t, issue)

	a.Label = "car"
	issue, err = Evaluate(testTask, a, testThresholds, DefaultRules("hidden"), "https://audit.local/a")
	require.NoError(t, err)
	require.NotNil(t, issue)
	assert.Equal(t, "https://audit.local/a?taskId="+testTask.TaskID, issue.AuditLink)
}

func TestEvaluate_MalformedAnnotation(t *testing.T) {
	w := 10.0
	cases := []struct {
		name  string
		ann   model.Annotation
		field string
	}{
		{"missing uuid", model.Annotation{Label: "car", Width: &w, Height: &w, Attributes: map[string]any{"background_color": "other"}}, "uuid"},
		{"missing label", model.Annotation{UUID: "x", Width: &w, Height: &w, Attributes: map[string]any{"background_color": "other"}}, "label"},
		{"missing width", model.Annotation{UUID: "x", Label: "car", Height: &w, Attributes: map[string]any{"background_color": "other"}}, "width"},
		{"missing height", model.Annotation{UUID: "x", Label: "car", Width: &w, Attributes: map[string]any{"background_color": "other"}}, "height"},
		{"missing attributes", model.Annotation{UUID: "x", Label: "car", Width: &w, Height: &w}, "attributes.background_color"},
		{"non-string color", model.Annotation{UUID: "x", Label: "car", Width: &w, Height: &w, Attributes: map[string]any{"background_color": 3.0}}, "attributes.background_color"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			issue, err := Evaluate(testTask, tc.ann, testThresholds, DefaultRules(""), "")
			assert.Nil(t, issue)

			var me *model.MalformedAnnotationError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, tc.field, me.Field)
			assert.Equal(t, testTask.TaskID, me.TaskID)
		})
	}
}
