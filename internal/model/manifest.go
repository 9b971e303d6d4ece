package model

// GradingMethodExternal is the only grading method the backends produce.
const GradingMethodExternal = "External"

// ExternalGradingOptions configures the grading container.
type ExternalGradingOptions struct {
	Enabled        bool   `json:"enabled"`
	Image          string `json:"image"`
	Entrypoint     string `json:"entrypoint"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

// GradingManifest is the fragment a backend contributes to info.json.
type GradingManifest struct {
	GradingMethod          string                 `json:"gradingMethod"`
	ExternalGradingOptions ExternalGradingOptions `json:"externalGradingOptions"`
}

// AnnotatedName is a name exposed by setup or answer code.
type AnnotatedName struct {
	ID          string
	Annotation  string
	Description string
}

// ServerManifest is the documentation manifest derived from setup and answer code.
type ServerManifest struct {
	Text     string
	Provided []AnnotatedName
	Required []AnnotatedName
}
