package glmchat

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/sjson"

	"glm-relay/internal/openaiadapter"
)

// buildUpstreamBody marshals the client request into the outbound upstream
// body. The upstream always streams regardless of what the client asked
// for; the aggregate path folds the stream back into one document. Model
// names are rewritten through the redirect map when one matches.
//
// Body rewriting goes through sjson so client fields this gateway does not
// model survive the trip untouched.
func buildUpstreamBody(req openaiadapter.CreateChatCompletionRequest, modelMap map[string]string) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal upstream request: %w", err)
	}

	if target, ok := modelMap[req.Model]; ok && target != "" {
		body, err = sjson.SetBytes(body, "model", target)
		if err != nil {
			return nil, fmt.Errorf("redirect model: %w", err)
		}
	}

	body, err = sjson.SetBytes(body, "stream", true)
	if err != nil {
		return nil, fmt.Errorf("force streaming: %w", err)
	}
	return body, nil
}
