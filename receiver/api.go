package receiver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/prilive-com/strmbot/internal/scrub"
	"github.com/prilive-com/strmbot/tg"
)

// DeleteWebhook removes any webhook so that getUpdates is allowed.
// baseURL defaults to tg.DefaultAPIBaseURL and client to http.DefaultClient.
func DeleteWebhook(ctx context.Context, client *http.Client, baseURL string, token tg.SecretToken, dropPending bool) error {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = tg.DefaultAPIBaseURL
	}

	apiURL := fmt.Sprintf("%s/bot%s/deleteWebhook?drop_pending_updates=%t",
		baseURL, token.Value(), dropPending)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", scrub.TokenFromError(err, token))
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", scrub.TokenFromError(err, token))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	var result tg.Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Err("deleteWebhook", resp)
}
