// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

// Package optimize produces post-hoc suggestions for a draft: hashtags, a
// stronger call to action, structure notes and an engagement forecast.
package optimize

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/tidwall/gjson"
)

const (
	DefaultHashtagCount = 8
	maxHashtagCount     = 30
	maxSuggested        = 10
	defaultScore        = 75
)

var (
	hashtagPattern = regexp.MustCompile(`#\w+`)

	// Used when the model replies without any hashtag.
	emptyReplyHashtags = []string{"#Content", "#Professional", "#Growth"}
	// Used when the model cannot be reached at all.
	unreachableHashtags = []string{"#Content", "#Professional", "#Growth", "#Success", "#Business"}
)

// Completer sends one system+user exchange to a model.
// *generate.Generator satisfies it.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Admitter gates calls that reach the model. *guard.Guard satisfies it.
type Admitter interface {
	Admit(ctx context.Context, key string) error
}

// Input is the content to analyze plus context for the model.
type Input struct {
	Content   string
	Brief     string
	Length    string
	Industry  string
	ClientKey string
}

// Adapter is stateless; it never touches sessions.
type Adapter struct {
	model Completer
	admit Admitter
}

// New returns an Adapter. admit may be nil.
func New(model Completer, admit Admitter) *Adapter {
	return &Adapter{model: model, admit: admit}
}

// Analyze asks the model for a full report. A model error or an unreadable
// reply yields the deterministic fallback report instead of an error.
func (a *Adapter) Analyze(ctx context.Context, in Input) (*Report, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, looperr.New(looperr.CodeOptimizeInvalidInput, "content must not be empty")
	}
	if strings.TrimSpace(in.Length) == "" {
		in.Length = "medium"
	}
	if strings.TrimSpace(in.Industry) == "" {
		in.Industry = "general"
	}
	if err := a.admitCall(ctx, in.ClientKey); err != nil {
		return nil, err
	}

	reply, err := a.model.Complete(ctx, analystSystemPrompt, analysisPrompt(in))
	if err != nil {
		slog.Warn("optimization analysis failed, using fallback", "error", err)
		return FallbackReport(in.Content, in.Brief), nil
	}

	report, ok := ParseReport(reply, in.Content, in.Brief)
	if !ok {
		slog.Warn("optimization reply was not JSON, using fallback")
	}
	return report, nil
}

// Hashtags is the quick path that only asks for hashtags.
func (a *Adapter) Hashtags(ctx context.Context, content, brief string, count int, clientKey string) ([]string, error) {
	if strings.TrimSpace(content) == "" {
		return nil, looperr.New(looperr.CodeOptimizeInvalidInput, "content must not be empty")
	}
	if count <= 0 {
		count = DefaultHashtagCount
	}
	if count > maxHashtagCount {
		return nil, looperr.Errorf(looperr.CodeOptimizeInvalidInput, "count must be at most %d", maxHashtagCount)
	}
	if err := a.admitCall(ctx, clientKey); err != nil {
		return nil, err
	}

	reply, err := a.model.Complete(ctx, hashtagSystemPrompt, hashtagPrompt(content, brief, count))
	if err != nil {
		slog.Warn("hashtag suggestion failed, using defaults", "error", err)
		return capped(unreachableHashtags, count), nil
	}

	tags := dedupe(hashtagPattern.FindAllString(reply, -1))
	if len(tags) == 0 {
		return capped(emptyReplyHashtags, count), nil
	}
	return capped(tags, count), nil
}

func (a *Adapter) admitCall(ctx context.Context, key string) error {
	if a.admit == nil {
		return nil
	}
	return a.admit.Admit(ctx, key)
}

// ParseReport reads the first JSON object in reply field by field. Missing
// or malformed fields take their fallback values. ok is false when no JSON
// object could be found, in which case the whole fallback report is returned.
func ParseReport(reply, content, brief string) (report *Report, ok bool) {
	fb := FallbackReport(content, brief)

	raw, found := extractObject(reply)
	if !found {
		return fb, false
	}
	doc := gjson.Parse(raw)

	r := &Report{
		OverallScore: fb.OverallScore,
		Hashtags: Hashtags{
			Suggested: normalizeHashtags(stringList(doc.Get("hashtags.suggested"))),
			Reasoning: stringOr(doc.Get("hashtags.reasoning"), fb.Hashtags.Reasoning),
		},
		CallToAction: CallToAction{
			Current:      stringOr(doc.Get("call_to_action.current_cta"), fb.CallToAction.Current),
			Improved:     stringOr(doc.Get("call_to_action.improved_cta"), fb.CallToAction.Improved),
			Alternatives: listOr(doc.Get("call_to_action.alternatives"), fb.CallToAction.Alternatives),
		},
		Structure: Structure{
			Readability:       coerce(doc.Get("structure_analysis.readability_score").String(), fb.Structure.Readability, "Good", "Average", "Poor"),
			ParagraphCount:    fb.Structure.ParagraphCount,
			HookEffectiveness: coerce(doc.Get("structure_analysis.hook_effectiveness").String(), fb.Structure.HookEffectiveness, "Strong", "Moderate", "Weak"),
			Suggestions:       listOr(doc.Get("structure_analysis.suggestions"), fb.Structure.Suggestions),
		},
		Engagement: Engagement{
			Prediction:   Prediction(coerce(doc.Get("engagement_optimization.predicted_engagement").String(), string(fb.Engagement.Prediction), "High", "Medium", "Low")),
			Triggers:     listOr(doc.Get("engagement_optimization.engagement_triggers"), fb.Engagement.Triggers),
			Improvements: listOr(doc.Get("engagement_optimization.improvements"), fb.Engagement.Improvements),
		},
		Recommendations: listOr(doc.Get("key_recommendations"), fb.Recommendations),
	}

	if len(r.Hashtags.Suggested) == 0 {
		r.Hashtags.Suggested = fb.Hashtags.Suggested
	}
	if score := doc.Get("overall_score"); score.Exists() {
		r.OverallScore = clamp(int(score.Int()), 0, 100)
	}
	if pc := doc.Get("structure_analysis.paragraph_count"); pc.Exists() && pc.Int() > 0 {
		r.Structure.ParagraphCount = int(pc.Int())
	}
	return r, true
}

// FallbackReport derives a report from the brief and content alone.
func FallbackReport(content, brief string) *Report {
	words := strings.Fields(strings.ToLower(brief))
	if len(words) == 0 {
		words = []string{"content", "professional"}
	}
	if len(words) > 3 {
		words = words[:3]
	}
	tags := make([]string, 0, len(words)+2)
	for _, w := range words {
		tags = append(tags, "#"+capitalize(w))
	}
	tags = append(tags, "#Content", "#ProfessionalGrowth")

	return &Report{
		OverallScore: defaultScore,
		Hashtags: Hashtags{
			Suggested: capped(normalizeHashtags(tags), 5),
			Reasoning: "Basic hashtag suggestions based on the content topic",
		},
		CallToAction: CallToAction{
			Current:  "None detected",
			Improved: "What are your thoughts on this topic? Share your experience below!",
			Alternatives: []string{
				"How has this impacted your professional journey?",
				"What strategies have worked for you?",
				"I'd love to hear your perspective in the comments!",
			},
		},
		Structure: Structure{
			Readability:       "Good",
			ParagraphCount:    paragraphCount(content),
			HookEffectiveness: "Moderate",
			Suggestions: []string{
				"Consider starting with a compelling question or statistic",
				"Use bullet points or numbered lists for better readability",
			},
		},
		Engagement: Engagement{
			Prediction: PredictionMedium,
			Triggers:   []string{"Personal experience", "Industry insights", "Call to action"},
			Improvements: []string{
				"Add a personal anecdote or example",
				"Include a thought-provoking question",
			},
		},
		Recommendations: []string{
			"Enhance with relevant hashtags",
			"Strengthen the call-to-action",
			"Add personal examples for authenticity",
		},
		Fallback: true,
	}
}

// extractObject returns the span from the first '{' to the last '}' when it
// is valid JSON.
func extractObject(reply string) (string, bool) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return "", false
	}
	raw := reply[start : end+1]
	if !gjson.Valid(raw) {
		return "", false
	}
	return raw, true
}

func stringList(v gjson.Result) []string {
	if !v.IsArray() {
		return nil
	}
	var out []string
	for _, item := range v.Array() {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func listOr(v gjson.Result, fallback []string) []string {
	if l := stringList(v); len(l) > 0 {
		return l
	}
	return fallback
}

func stringOr(v gjson.Result, fallback string) string {
	if s := strings.TrimSpace(v.String()); s != "" {
		return s
	}
	return fallback
}

// coerce maps raw onto one of allowed by case-insensitive containment,
// checking allowed in order.
func coerce(raw, fallback string, allowed ...string) string {
	lower := strings.ToLower(raw)
	for _, a := range allowed {
		if strings.Contains(lower, strings.ToLower(a)) {
			return a
		}
	}
	return fallback
}

func normalizeHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, t)
		t = strings.TrimLeft(t, "#")
		if t == "" {
			continue
		}
		out = append(out, "#"+t)
	}
	return capped(dedupe(out), maxSuggested)
}

func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

func capped(tags []string, n int) []string {
	if len(tags) > n {
		tags = tags[:n]
	}
	return append([]string(nil), tags...)
}

func capitalize(w string) string {
	w = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, w)
	if w == "" {
		return ""
	}
	r := []rune(w)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func paragraphCount(content string) int {
	n := 0
	for _, p := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n\n") {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
