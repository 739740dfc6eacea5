package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/climatenet/climatebot/internal/httputil"
)

// Update is one inbound event from the messaging transport.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID int64        `json:"message_id"`
	From      *Sender      `json:"from"`
	Chat      Chat         `json:"chat"`
	Text      string       `json:"text"`
	Location  *Coordinates `json:"location"`
}

type Sender struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type Coordinates struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// SendOptions controls message presentation.
type SendOptions struct {
	HTML     bool
	Keyboard []string
	// RequestLocation turns the first keyboard button into a location
	// share button and makes the keyboard one-time.
	RequestLocation bool
}

// Transport is the messaging side of the bot: deliver text and images,
// present quick-reply options, receive updates.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string, opts SendOptions) error
	SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) error
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
}

// Telegram implements Transport over the Telegram Bot HTTP API.
type Telegram struct {
	baseURL string
	client  *http.Client
}

func NewTelegram(apiURL, token string) *Telegram {
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}
	client := httputil.NewClient()
	// Long polls outlive the standard request timeout.
	client.Timeout = 75 * time.Second
	return &Telegram{
		baseURL: fmt.Sprintf("%s/bot%s", apiURL, token),
		client:  client,
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (t *Telegram) SendText(ctx context.Context, chatID int64, text string, opts SendOptions) error {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if opts.HTML {
		payload["parse_mode"] = "HTML"
	}
	if len(opts.Keyboard) > 0 {
		payload["reply_markup"] = replyKeyboard(opts)
	}

	_, err := t.call(ctx, "sendMessage", payload)
	return err
}

// replyKeyboard lays options out two per row, like the original menus. A
// location request keyboard is one button per row and dismissed on use.
func replyKeyboard(opts SendOptions) map[string]any {
	perRow := 2
	if opts.RequestLocation {
		perRow = 1
	}

	var rows [][]map[string]any
	for i := 0; i < len(opts.Keyboard); i += perRow {
		var row []map[string]any
		for j := i; j < i+perRow && j < len(opts.Keyboard); j++ {
			button := map[string]any{"text": opts.Keyboard[j]}
			if opts.RequestLocation && j == 0 {
				button["request_location"] = true
			}
			row = append(row, button)
		}
		rows = append(rows, row)
	}

	markup := map[string]any{
		"keyboard":        rows,
		"resize_keyboard": true,
	}
	if opts.RequestLocation {
		markup["one_time_keyboard"] = true
	}
	return markup
}

func (t *Telegram) SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return fmt.Errorf("write chat_id: %w", err)
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return fmt.Errorf("write caption: %w", err)
		}
	}
	part, err := w.CreateFormFile("photo", "comparison.png")
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(png); err != nil {
		return fmt.Errorf("write photo: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/sendPhoto", &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("sendPhoto: %w", err)
	}
	defer resp.Body.Close()
	return checkResponse(resp)
}

func (t *Telegram) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	payload := map[string]any{
		"offset":  offset,
		"timeout": int(timeout.Seconds()),
	}
	result, err := t.call(ctx, "getUpdates", payload)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, fmt.Errorf("unmarshal updates: %w", err)
	}
	return updates, nil
}

func (t *Telegram) call(ctx context.Context, method string, payload map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}

	var api apiResponse
	if err := json.Unmarshal(data, &api); err != nil {
		return nil, fmt.Errorf("unmarshal %s response: %w", method, err)
	}
	if !api.OK {
		return nil, fmt.Errorf("%s: api error: %s", method, api.Description)
	}
	return api.Result, nil
}

func checkResponse(resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var api apiResponse
	if err := json.Unmarshal(data, &api); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if !api.OK {
		return fmt.Errorf("api error: %s", api.Description)
	}
	return nil
}
