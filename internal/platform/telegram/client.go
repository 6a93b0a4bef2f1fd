package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// Per-call timeouts. GetUpdates adds a buffer on top of the server-side poll
// timeout so the long poll is never cancelled client-side first.
const (
	sendTimeout    = 30 * time.Second
	voiceTimeout   = 60 * time.Second
	actionTimeout  = 10 * time.Second
	longPollBuffer = 10 * time.Second
)

type Client struct {
	token      string
	apiBase    string
	httpClient *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		token:      token,
		apiBase:    defaultAPIBase,
		httpClient: &http.Client{},
	}
}

// apiResponse is the Bot API envelope around every method result.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
}

func (r apiResponse) errText() string {
	if r.Description != "" {
		return r.Description
	}
	return "unknown error"
}

// SendMessage sends a plain text message.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	resp, err := c.postJSON(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	}, sendTimeout)
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("sendMessage: %s", resp.errText())
	}
	return nil
}

// SendVoice uploads audio as a Telegram voice note. caption may be empty.
func (c *Client) SendVoice(ctx context.Context, chatID int64, audio []byte, caption string) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("chat_id", fmt.Sprintf("%d", chatID)); err != nil {
		return fmt.Errorf("sendVoice: write chat_id: %w", err)
	}
	if caption != "" {
		if err := mw.WriteField("caption", caption); err != nil {
			return fmt.Errorf("sendVoice: write caption: %w", err)
		}
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="voice"; filename="message.mp3"`)
	header.Set("Content-Type", "audio/mpeg")
	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("sendVoice: create part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return fmt.Errorf("sendVoice: write audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("sendVoice: close multipart: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, voiceTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendVoice"), &buf)
	if err != nil {
		return fmt.Errorf("sendVoice: request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("sendVoice: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("sendVoice: %s", resp.errText())
	}
	return nil
}

// SendChatAction signals a presence indicator ("record_voice" etc). The call
// is best-effort: an ok=false body is not an error, only transport failures
// are reported.
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	_, err := c.postJSON(ctx, "sendChatAction", map[string]any{
		"chat_id": chatID,
		"action":  action,
	}, actionTimeout)
	return err
}

// SetWebhook registers url for update delivery and returns the platform's
// response verbatim.
func (c *Client) SetWebhook(ctx context.Context, url string) (json.RawMessage, error) {
	return c.postRaw(ctx, "setWebhook", map[string]any{"url": url}, sendTimeout)
}

// DeleteWebhook removes any webhook registration (required for polling).
func (c *Client) DeleteWebhook(ctx context.Context) (json.RawMessage, error) {
	return c.postRaw(ctx, "deleteWebhook", map[string]any{}, sendTimeout)
}

// GetUpdates long-polls for new updates. The server holds the request up to
// timeout; the HTTP deadline gets an extra buffer so the poll isn't cut off
// by our own client.
func (c *Client) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]Update, error) {
	payload := map[string]any{
		"timeout": int(timeout.Seconds()),
	}
	if offset > 0 {
		payload["offset"] = offset
	}

	resp, err := c.postJSON(ctx, "getUpdates", payload, timeout+longPollBuffer)
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("getUpdates: %s", resp.errText())
	}

	var updates []Update
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &updates); err != nil {
			return nil, fmt.Errorf("getUpdates: decode result: %w", err)
		}
	}
	return updates, nil
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)
}

func (c *Client) postJSON(ctx context.Context, method string, payload any, timeout time.Duration) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return resp, nil
}

// postRaw is postJSON without envelope interpretation: the whole response
// body is handed back untouched.
func (c *Client) postRaw(ctx context.Context, method string, payload any, timeout time.Duration) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: do request: %w", method, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", method, err)
	}
	return json.RawMessage(raw), nil
}

func (c *Client) do(req *http.Request) (*apiResponse, error) {
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}
