package net

// Mode gates whether a Classifier may change its weights.
type Mode int

const (
	// ModeUnset is the zero value. Weight updates are rejected until the
	// caller picks a mode explicitly.
	ModeUnset Mode = iota
	ModeTraining
	ModeEvaluation
)

func (m Mode) String() string {
	switch m {
	case ModeTraining:
		return "training"
	case ModeEvaluation:
		return "evaluation"
	default:
		return "unset"
	}
}

// EnterTrainingMode allows UpdateWeights.
func (c *Classifier) EnterTrainingMode() {
	c.mode = ModeTraining
}

// EnterEvaluationMode forbids UpdateWeights.
func (c *Classifier) EnterEvaluationMode() {
	c.mode = ModeEvaluation
}

// Mode returns the current mode.
func (c *Classifier) Mode() Mode {
	return c.mode
}
