package format

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Andrei-Barwood/annotaudit/internal/model"
)

// JSON renders the results file: a single array of issues, never null.
func JSON(issues []model.Issue) ([]byte, error) {
	if issues == nil {
		issues = []model.Issue{}
	}
	b, err := json.MarshalIndent(issues, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func Markdown(result model.RunResult) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# annotaudit report\n\n")
	if result.RunID != "" {
		fmt.Fprintf(&b, "- Run: `%s`\n", result.RunID)
	}
	if !result.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "- Generated: `%s`\n", result.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	}
	if result.Project != "" {
		fmt.Fprintf(&b, "- Project: `%s`\n", result.Project)
	}
	if result.Tasks > 0 {
		fmt.Fprintf(&b, "- Tasks: `%d`\n", result.Tasks)
		fmt.Fprintf(&b, "- Annotations: `%d`\n", result.Annotations)
	}
	if th := result.Thresholds; th != nil {
		fmt.Fprintf(&b, "- P%s width: `%s`\n", num(th.Percentile), num(th.Width))
		fmt.Fprintf(&b, "- P%s height: `%s`\n", num(th.Percentile), num(th.Height))
	}
	fmt.Fprintf(&b, "- Issues: `%d`\n\n", len(result.Issues))

	if len(result.Issues) == 0 {
		b.WriteString("No issues.\n")
	} else {
		sorted := append([]model.Issue(nil), result.Issues...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return severityWeight(sorted[i].EscalationSeverity) > severityWeight(sorted[j].EscalationSeverity)
		})

		for _, is := range sorted {
			fmt.Fprintf(&b, "## [%s] %s `%s`\n\n", strings.ToUpper(string(is.EscalationSeverity)), is.Label, is.UUID)
			fmt.Fprintf(&b, "- Task: [%s](%s)\n", is.TaskID, is.AuditLink)
			fmt.Fprintf(&b, "- Box: `%s x %s`\n", num(is.Width), num(is.Height))
			if is.Image != "" {
				fmt.Fprintf(&b, "- Image: %s\n", is.Image)
			}
			fmt.Fprintf(&b, "- Message: %s\n\n", is.EscalationMessages)
		}
	}

	if len(result.Notes) > 0 {
		b.WriteString("## Notes\n\n")
		for _, note := range result.Notes {
			fmt.Fprintf(&b, "- %s\n", note)
		}
		b.WriteString("\n")
	}

	return []byte(b.String()), nil
}

var csvHeader = []string{
	"taskId", "uuid", "label", "height", "width", "image",
	"auditLink", "escalationSeverity", "escalationMessages",
}

func CSV(issues []model.Issue) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, is := range issues {
		row := []string{
			is.TaskID,
			is.UUID,
			is.Label,
			num(is.Height),
			num(is.Width),
			is.Image,
			is.AuditLink,
			string(is.EscalationSeverity),
			is.EscalationMessages,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func SARIF(issues []model.Issue) ([]byte, error) {
	type rule struct {
		ID               string `json:"id"`
		Name             string `json:"name"`
		ShortDescription struct {
			Text string `json:"text"`
		} `json:"shortDescription"`
	}
	type artifactLocation struct {
		URI string `json:"uri"`
	}
	type location struct {
		PhysicalLocation struct {
			ArtifactLocation artifactLocation `json:"artifactLocation"`
		} `json:"physicalLocation"`
	}
	type resultItem struct {
		RuleID     string            `json:"ruleId"`
		Level      string            `json:"level"`
		Message    any               `json:"message"`
		Locations  []location        `json:"locations,omitempty"`
		Properties map[string]string `json:"properties,omitempty"`
	}

	rulesByID := make(map[string]rule)
	results := make([]resultItem, 0, len(issues))

	for _, is := range issues {
		id := is.RuleID()
		if _, ok := rulesByID[id]; !ok {
			r := rule{ID: id, Name: ruleName(id)}
			r.ShortDescription.Text = is.EscalationMessages
			rulesByID[id] = r
		}

		item := resultItem{
			RuleID:  id,
			Level:   sarifLevel(is.EscalationSeverity),
			Message: map[string]string{"text": fmt.Sprintf("%s (label %s, uuid %s)", is.EscalationMessages, is.Label, is.UUID)},
			Properties: map[string]string{
				"taskId":    is.TaskID,
				"uuid":      is.UUID,
				"auditLink": is.AuditLink,
			},
		}
		if is.Image != "" {
			item.Locations = []location{{}}
			item.Locations[0].PhysicalLocation.ArtifactLocation.URI = is.Image
		}
		results = append(results, item)
	}

	rules := make([]rule, 0, len(rulesByID))
	for _, r := range rulesByID {
		rules = append(rules, r)
	}
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })

	payload := map[string]any{
		"$schema": "https://json.schemastore.org/sarif-2.1.0.json",
		"version": "2.1.0",
		"runs": []any{
			map[string]any{
				"tool": map[string]any{
					"driver": map[string]any{
						"name":            "annotaudit",
						"informationUri":  "https://github.com/Andrei-Barwood/annotaudit",
						"semanticVersion": "0.1.0",
						"rules":           rules,
					},
				},
				"results": results,
			},
		},
	}

	return json.MarshalIndent(payload, "", "  ")
}

func ruleName(id string) string {
	switch id {
	case model.RuleAttributeConsistency:
		return "Attribute Consistency"
	case model.RuleUnusualBoxSize:
		return "Unusual Box Size"
	default:
		return id
	}
}

func severityWeight(s model.Severity) int {
	switch s {
	case model.SeverityError:
		return 2
	case model.SeverityWarning:
		return 1
	default:
		return 0
	}
}

func sarifLevel(s model.Severity) string {
	switch s {
	case model.SeverityError:
		return "error"
	case model.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
