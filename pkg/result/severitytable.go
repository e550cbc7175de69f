package result

// SeverityInfo is the static metadata attached to a result variant: its
// default severity and the threshold it is reported at.
type SeverityInfo struct {
	Severity  Severity
	Threshold Threshold
}

// severityTable is the constant map of variant metadata, built once at
// init and never mutated. Checks that define their own Kind values add
// entries here via RegisterSeverity during package init instead of the
// per-instance metaclass injection this table generalizes (spec.md §9).
var severityTable = map[Kind]SeverityInfo{
	KindCommit:          {Severity: Warning, Threshold: ThresholdCommit},
	KindCategory:        {Severity: Warning, Threshold: ThresholdCategory},
	KindPackage:         {Severity: Warning, Threshold: ThresholdPackage},
	KindVersioned:       {Severity: Warning, Threshold: ThresholdVersion},
	KindFilteredVersion: {Severity: Info, Threshold: ThresholdVersion},
	KindLogWarning:      {Severity: Warning, Threshold: ThresholdCommit},
	KindLogError:        {Severity: Error, Threshold: ThresholdCommit},
	KindMetadataError:   {Severity: Error, Threshold: ThresholdVersion},
}

// RegisterSeverity adds or overrides the severity metadata for a variant
// Kind. Checks call this from an init func when they define result kinds
// of their own; it is not safe for concurrent use once pipelines are
// running.
func RegisterSeverity(k Kind, info SeverityInfo) {
	severityTable[k] = info
}

// SeverityOf returns the registered severity for a variant, defaulting to
// Warning when the variant was never registered.
func SeverityOf(k Kind) Severity {
	if info, ok := severityTable[k]; ok {
		return info.Severity
	}

	return Warning
}

// ThresholdOf returns the registered threshold for a variant, defaulting
// to ThresholdVersion when the variant was never registered.
func ThresholdOf(k Kind) Threshold {
	if info, ok := severityTable[k]; ok {
		return info.Threshold
	}

	return ThresholdVersion
}
