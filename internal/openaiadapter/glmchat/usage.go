package glmchat

import "glm-relay/internal/openaiadapter/types"

// toCompletionUsage converts upstream usage to the OpenAI shape. A missing
// total is reconstructed from the two parts; some upstream versions omit it.
func toCompletionUsage(u *upstreamUsage) *types.CompletionUsage {
	if u == nil {
		return nil
	}
	total := u.TotalTokens
	if total == 0 {
		total = u.PromptTokens + u.CompletionTokens
	}
	return &types.CompletionUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      total,
	}
}
