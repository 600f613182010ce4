package report

import (
	"sort"

	"github.com/Andrei-Barwood/annotaudit/internal/model"
)

// Group counts issues raised by one rule for one label.
type Group struct {
	Rule     string         `json:"rule"`
	Severity model.Severity `json:"severity"`
	Label    string         `json:"label"`
	Count    int            `json:"count"`
	Tasks    int            `json:"tasks"`
}

// Summarize groups issues by rule and label. Errors sort before warnings,
// then larger groups first, then by label.
func Summarize(issues []model.Issue) []Group {
	type bucket struct {
		group Group
		tasks map[string]struct{}
	}

	buckets := map[string]*bucket{}
	for _, is := range issues {
		key := is.RuleID() + "|" + is.Label
		entry, ok := buckets[key]
		if !ok {
			entry = &bucket{
				group: Group{
					Rule:     is.RuleID(),
					Severity: is.EscalationSeverity,
					Label:    is.Label,
				},
				tasks: map[string]struct{}{},
			}
			buckets[key] = entry
		}
		entry.group.Count++
		entry.tasks[is.TaskID] = struct{}{}
	}

	out := make([]Group, 0, len(buckets))
	for _, b := range buckets {
		b.group.Tasks = len(b.tasks)
		out = append(out, b.group)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri := severityRank(out[i].Severity)
		rj := severityRank(out[j].Severity)
		if ri != rj {
			return ri > rj
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})

	return out
}

func severityRank(s model.Severity) int {
	switch s {
	case model.SeverityError:
		return 2
	case model.SeverityWarning:
		return 1
	default:
		return 0
	}
}
