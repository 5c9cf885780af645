// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package optimize

// Prediction is the coarse engagement forecast.
type Prediction string

const (
	PredictionLow    Prediction = "Low"
	PredictionMedium Prediction = "Medium"
	PredictionHigh   Prediction = "High"
)

// Report is the structured optimization advice for one piece of content.
type Report struct {
	OverallScore    int          `json:"overall_score" yaml:"overall_score"`
	Hashtags        Hashtags     `json:"hashtags" yaml:"hashtags"`
	CallToAction    CallToAction `json:"call_to_action" yaml:"call_to_action"`
	Structure       Structure    `json:"structure" yaml:"structure"`
	Engagement      Engagement   `json:"engagement" yaml:"engagement"`
	Recommendations []string     `json:"recommendations" yaml:"recommendations"`
	// Fallback is set when the report was derived locally instead of by
	// the model.
	Fallback bool `json:"fallback" yaml:"fallback"`
}

type Hashtags struct {
	Suggested []string `json:"suggested" yaml:"suggested"`
	Reasoning string   `json:"reasoning" yaml:"reasoning"`
}

type CallToAction struct {
	Current      string   `json:"current" yaml:"current"`
	Improved     string   `json:"improved" yaml:"improved"`
	Alternatives []string `json:"alternatives" yaml:"alternatives"`
}

type Structure struct {
	Readability       string   `json:"readability" yaml:"readability"`
	ParagraphCount    int      `json:"paragraph_count" yaml:"paragraph_count"`
	HookEffectiveness string   `json:"hook_effectiveness" yaml:"hook_effectiveness"`
	Suggestions       []string `json:"suggestions" yaml:"suggestions"`
}

type Engagement struct {
	Prediction   Prediction `json:"prediction" yaml:"prediction"`
	Triggers     []string   `json:"triggers" yaml:"triggers"`
	Improvements []string   `json:"improvements" yaml:"improvements"`
}
