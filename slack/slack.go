package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"recipestore"
)

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client posts messages to an incoming webhook.
type Client struct {
	webhookURL string
	httpClient doer
}

func NewClient(webhookURL string, httpClient doer) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

func (c *Client) PostMessage(ctx context.Context, channel string, message string) error {
	payload, err := json.Marshal(map[string]any{
		"channel": channel,
		"text":    message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}

	return nil
}

// Notifier is a recipestore.OperationLogger that reports failed operations to
// a channel. Successful operations are ignored.
type Notifier struct {
	client  *Client
	channel string
	timeout time.Duration
}

func NewNotifier(client *Client, channel string) *Notifier {
	return &Notifier{client: client, channel: channel, timeout: 5 * time.Second}
}

func (n *Notifier) LogOperation(entry recipestore.OperationLog) error {
	if !entry.Failed() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	return n.client.PostMessage(ctx, n.channel, FormatFailure(entry))
}

// FormatFailure renders a failed operation as a one-line alert.
func FormatFailure(entry recipestore.OperationLog) string {
	msg := fmt.Sprintf(":warning: recipe %s failed (%s)", entry.Operation, entry.ErrorKind)
	if entry.RecipeID != "" {
		msg += fmt.Sprintf(" recipe=%s", entry.RecipeID)
	}
	if entry.StatusCode != 0 {
		msg += fmt.Sprintf(" status=%d", entry.StatusCode)
	}
	return msg + ": " + entry.Error
}
