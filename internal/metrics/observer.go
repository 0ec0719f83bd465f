package metrics

type EngineObserver interface {
	RecordOverrideWrite(subjectKind string)
	RecordOptIn(slug string)
	RecordEligibilityEval()
}
