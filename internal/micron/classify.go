package micron

// Classifier boundary. The automated ice-classification model is an
// external consumer of this package: the core supplies typed, filtered,
// feature-annotated swaths and records whatever results come back. It
// does not depend on any model existing.

// ClassificationResult is one classifier verdict for one ice variable
// across a swath.
type ClassificationResult struct {
	Variable   IceVariable
	Value      float64
	Confidence float64
	Model      string // model identifier/version
}

// IceClassifier consumes one swath and returns per-variable verdicts.
type IceClassifier interface {
	ClassifySwath(s *Swath) ([]ClassificationResult, error)
	Model() string
}

// ApplyClassification stamps classifier verdicts onto every ensemble in
// the swath through the sanctioned SetClass path.
func ApplyClassification(s *Swath, results []ClassificationResult) error {
	for _, r := range results {
		for _, e := range s.Ensembles {
			if err := e.SetClass(r.Variable, r.Value); err != nil {
				return err
			}
		}
	}
	return nil
}
