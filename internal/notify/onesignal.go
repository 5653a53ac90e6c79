package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OneSignal pushes a web notification to every subscribed browser when a
// prompt goes public. Other events are ignored.
type OneSignal struct {
	appID   string
	apiKey  string
	baseURL string
	appURL  string
	client  *http.Client
}

func NewOneSignal(appID, apiKey, baseURL, appURL string) *OneSignal {
	return &OneSignal{
		appID:   appID,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		appURL:  strings.TrimRight(appURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (o *OneSignal) Name() string { return "onesignal" }

type oneSignalNotification struct {
	AppID            string            `json:"app_id"`
	IncludedSegments []string          `json:"included_segments"`
	Headings         map[string]string `json:"headings"`
	Contents         map[string]string `json:"contents"`
	WebURL           string            `json:"web_url"`
}

func (o *OneSignal) Send(ctx context.Context, ev Event) error {
	if ev.Type != EventPromptApproved {
		return nil
	}

	body, err := json.Marshal(oneSignalNotification{
		AppID:            o.appID,
		IncludedSegments: []string{"Subscribed Users"},
		Headings:         map[string]string{"en": "New Prompt Added! ✨"},
		Contents:         map[string]string{"en": fmt.Sprintf("A new creative prompt has been added: %q...", excerpt(ev.Text, 50))},
		WebURL:           o.appURL + "/prompt/" + ev.PromptID,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/notifications", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Basic "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("OneSignal API error %d: %s", resp.StatusCode, string(b))
	}
	return nil
}
