package classify

import "github.com/user/netdiag/internal/model"

// Classify judges m against the table for family. Unknown families and
// absent metrics produce no issues. The result depends only on the inputs.
func Classify(family Family, m model.MetricSet) model.Diagnosis {
	return Evaluate(tables[family], m)
}

// Evaluate applies table to m.
func Evaluate(table Table, m model.MetricSet) model.Diagnosis {
	d := model.Diagnosis{Outcome: model.OutcomeOK}

	for _, group := range table {
		for _, rule := range group.Rules {
			v, ok := m.Value(rule.Metric)
			if !ok || !rule.Matches(v) {
				continue
			}
			d.Issues = append(d.Issues, model.Issue{Severity: rule.Severity, Label: rule.Issue})
			if rule.Cause != "" {
				d.Causes = append(d.Causes, rule.Cause)
			}
			if rule.Remedy != "" {
				d.Remedies = append(d.Remedies, rule.Remedy)
			}
			break
		}
	}

	d.Label = Aggregate(d.Issues)
	return d
}

// Aggregate reduces issues to the overall label: none is excellent, only
// warnings is good, up to two bad issues is unstable and more is poor.
func Aggregate(issues []model.Issue) model.Label {
	if len(issues) == 0 {
		return model.LabelExcellent
	}

	bad := 0
	for _, i := range issues {
		if i.Severity == model.SeverityBad {
			bad++
		}
	}

	switch {
	case bad == 0:
		return model.LabelGood
	case bad <= 2:
		return model.LabelUnstable
	default:
		return model.LabelPoor
	}
}

// DownloadLabel grades a single download throughput figure. Every bound is
// exclusive, so exactly 50 Mbps is good rather than excellent.
func DownloadLabel(mbps float64) model.Label {
	switch {
	case mbps > 50:
		return model.LabelExcellent
	case mbps > 20:
		return model.LabelGood
	case mbps > 5:
		return model.LabelUnstable
	default:
		return model.LabelPoor
	}
}

// Rank orders labels from best to worst.
func Rank(l model.Label) int {
	switch l {
	case model.LabelExcellent:
		return 0
	case model.LabelGood:
		return 1
	case model.LabelUnstable:
		return 2
	case model.LabelPoor:
		return 3
	}
	return -1
}
