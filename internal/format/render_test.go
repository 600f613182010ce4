package format

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Andrei-Barwood/annotaudit/internal/model"
)

func sampleIssues() []model.Issue {
	return []model.Issue{
		{
			TaskID:             "t2",
			UUID:               "B",
			Label:              "car",
			Height:             500,
			Width:              500.5,
			Image:              "https://img/2.jpg",
			AuditLink:          "https://dashboard.scale.com/audit?taskId=t2",
			EscalationSeverity: model.SeverityWarning,
			EscalationMessages: "big, box",
		},
		{
			TaskID:             "t1",
			UUID:               "A",
			Label:              "sign",
			Height:             10,
			Width:              10,
			Image:              "https://img/1.jpg",
			AuditLink:          "https://dashboard.scale.com/audit?taskId=t1",
			EscalationSeverity: model.SeverityError,
			EscalationMessages: "bad color",
		},
	}
}

func TestJSONIsArrayOfIssues(t *testing.T) {
	b, err := JSON(sampleIssues())
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	require.Len(t, raw, 2)
	assert.Equal(t, "t2", raw[0]["taskId"])
	assert.Equal(t, "warning", raw[0]["escalationSeverity"])
	assert.Contains(t, raw[0], "auditLink")
	assert.Contains(t, raw[0], "escalationMessages")
}

func TestJSONEmptyIsEmptyArray(t *testing.T) {
	b, err := JSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(b))
}

func TestMarkdownListsErrorsFirst(t *testing.T) {
	r := model.RunResult{
		GeneratedAt: time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
		Project:     "Traffic Sign Detection",
		Tasks:       2,
		Annotations: 2,
		Thresholds:  &model.Thresholds{Percentile: 95, Width: 475.5, Height: 475.5},
		Issues:      sampleIssues(),
	}

	b, err := Markdown(r)
	require.NoError(t, err)
	text := string(b)

	assert.Contains(t, text, "P95 width: `475.5`")
	errIdx := strings.Index(text, "[ERROR]")
	warnIdx := strings.Index(text, "[WARNING]")
	require.NotEqual(t, -1, errIdx)
	require.NotEqual(t, -1, warnIdx)
	assert.Less(t, errIdx, warnIdx)
}

func TestMarkdownNoIssues(t *testing.T) {
	b, err := Markdown(model.RunResult{})
	require.NoError(t, err)
	assert.Contains(t, string(b), "No issues.")
}

func TestCSVQuotesFields(t *testing.T) {
	b, err := CSV(sampleIssues())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "taskId,uuid,label,height,width"))
	assert.Contains(t, lines[1], `"big, box"`)
	assert.Contains(t, lines[1], ",500,500.5,")
}

func TestSARIFContainsRules(t *testing.T) {
	b, err := SARIF(sampleIssues())
	require.NoError(t, err)
	text := string(b)

	assert.Contains(t, text, model.RuleAttributeConsistency)
	assert.Contains(t, text, model.RuleUnusualBoxSize)
	assert.Contains(t, text, `"level": "error"`)
	assert.Contains(t, text, `"level": "warning"`)
}
