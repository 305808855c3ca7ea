package rules

// Label is the triage outcome assigned to one record. The set is closed:
// every record receives exactly one of these.
type Label string

const (
	LabelEscalateHighRisk            Label = "ESCALATE_HIGH_RISK"
	LabelDomesticHighVolume          Label = "ALERT_DOMESTIC_HIGH_VOLUME"
	LabelMaliciousOrForeignLowVolume Label = "ALERT_MALICIOUS_OR_FOREIGN_LOW_VOLUME"
	LabelSuspiciousDomesticLowVolume Label = "ALERT_SUSPICIOUS_DOMESTIC_LOW_VOLUME"
	LabelSuspiciousTiming            Label = "ALERT_SUSPICIOUS_TIMING"
	LabelBenign                      Label = "BENIGN"
)

// Labels lists every label in precedence order, most severe first.
func Labels() []Label {
	return []Label{
		LabelEscalateHighRisk,
		LabelDomesticHighVolume,
		LabelMaliciousOrForeignLowVolume,
		LabelSuspiciousDomesticLowVolume,
		LabelSuspiciousTiming,
		LabelBenign,
	}
}

// Severity maps a label to a numeric rank for comparison and aggregation.
func (l Label) Severity() int {
	switch l {
	case LabelEscalateHighRisk:
		return 5
	case LabelDomesticHighVolume:
		return 4
	case LabelMaliciousOrForeignLowVolume:
		return 3
	case LabelSuspiciousDomesticLowVolume:
		return 2
	case LabelSuspiciousTiming:
		return 1
	default:
		return 0
	}
}

// IsAlert reports whether the label requires analyst attention.
func (l Label) IsAlert() bool {
	return l != LabelBenign
}
