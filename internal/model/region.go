package model

// Reserved region names.
const (
	RegionAnswerCode   = "answer_code"
	RegionPromptCode   = "prompt_code"
	RegionQuestionText = "question_text"
	RegionSetupCode    = "setup_code"
	RegionTest         = "test"
	RegionMetadata     = "metadata"
	RegionInfoJSON     = "info.json"
	RegionServer       = "server"
	RegionPreCode      = "pre_code"
	RegionPostCode     = "post_code"
)

// RegionMap maps region names to their finalized text.
type RegionMap map[string]string

// Take removes key from the map and returns its value, or def when absent.
func (r RegionMap) Take(key, def string) string {
	v, ok := r[key]
	if !ok {
		return def
	}

	delete(r, key)

	return v
}
