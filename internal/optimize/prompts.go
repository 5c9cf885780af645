// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package optimize

import "fmt"

const analystSystemPrompt = `You are a content optimization expert. Analyze content posts and give specific, actionable suggestions that maximize engagement, reach and professional impact.

Focus on:
- Hashtag strategy (relevant, a mix of popular and niche)
- Call-to-action effectiveness
- Content structure and readability
- Engagement triggers and hooks
- Professional tone`

const hashtagSystemPrompt = "You are a content hashtag expert."

func analysisPrompt(in Input) string {
	return fmt.Sprintf(`Analyze this content post and provide optimization suggestions.

CONTENT TO ANALYZE:
%s

CONTEXT:
- Topic: %s
- Length: %s
- Industry: %s

Reply with JSON only, in exactly this shape:
{
  "hashtags": {"suggested": ["hashtag1", "hashtag2", "hashtag3", "hashtag4", "hashtag5"], "reasoning": "Brief explanation of the hashtag strategy"},
  "call_to_action": {"current_cta": "CTA found in the content or 'None found'", "improved_cta": "Improved CTA", "alternatives": ["Alternative 1", "Alternative 2", "Alternative 3"]},
  "structure_analysis": {"readability_score": "Good/Average/Poor", "paragraph_count": 0, "hook_effectiveness": "Strong/Moderate/Weak", "suggestions": ["Improvement 1", "Improvement 2"]},
  "engagement_optimization": {"predicted_engagement": "High/Medium/Low", "engagement_triggers": ["Trigger 1", "Trigger 2"], "improvements": ["Improvement 1", "Improvement 2"]},
  "overall_score": 85,
  "key_recommendations": ["Recommendation 1", "Recommendation 2", "Recommendation 3"]
}`, in.Content, in.Brief, in.Length, in.Industry)
}

func hashtagPrompt(content, brief string, count int) string {
	return fmt.Sprintf(`Content: %s
Topic: %s

Suggest %d highly relevant hashtags for this content. Mix popular hashtags (high reach) with niche ones (targeted audience).

Return ONLY the hashtags in this format:
#Hashtag1, #Hashtag2, #Hashtag3`, content, brief, count)
}
