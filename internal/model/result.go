package model

import "time"

// GenerationResult summarises the generation of one question.
type GenerationResult struct {
	Source      Path
	QuestionDir Path
	Backend     string
	Artifacts   int
	Duration    time.Duration
	// Err is set when generation failed.
	Err error
}

// Failed reports whether generation failed.
func (r GenerationResult) Failed() bool {
	return r.Err != nil
}
