package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/parassrivastav/traqcheck-test/internal/models"
)

const (
	defaultTelegramBaseURL = "https://api.telegram.org"
	maxTelegramMessage     = 4000
)

var ErrBotNotConfigured = errors.New("telegram bot token is not configured")

// MessageChannel is the outbound side of the chat platform.
type MessageChannel interface {
	SendMessage(ctx context.Context, chatID, text string) error
	FetchAttachment(ctx context.Context, fileID string) (*FetchedFile, error)
}

type FetchedFile struct {
	RemotePath string
	Content    []byte
}

// TelegramClient talks to the Telegram Bot API over plain HTTP.
type TelegramClient struct {
	token       string
	baseURL     string
	client      *http.Client
	fileTimeout time.Duration
	maxFileSize int64
}

type TelegramClientOptions struct {
	Token       string
	BaseURL     string
	SendTimeout time.Duration
	FileTimeout time.Duration
	MaxFileSize int64
}

func NewTelegramClient(opts TelegramClientOptions) *TelegramClient {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultTelegramBaseURL
	}
	sendTimeout := opts.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = 20 * time.Second
	}
	fileTimeout := opts.FileTimeout
	if fileTimeout <= 0 {
		fileTimeout = 30 * time.Second
	}

	return &TelegramClient{
		token:       opts.Token,
		baseURL:     baseURL,
		client:      &http.Client{Timeout: sendTimeout},
		fileTimeout: fileTimeout,
		maxFileSize: opts.MaxFileSize,
	}
}

func (t *TelegramClient) Configured() bool {
	return t.token != ""
}

type telegramResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// call posts a JSON payload to a Bot API method and decodes its result.
func (t *TelegramClient) call(ctx context.Context, client *http.Client, method string, payload any, out any) error {
	if !t.Configured() {
		return ErrBotNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s: encode payload: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %s", method, redactToken(err.Error(), t.token))
	}
	defer resp.Body.Close()

	var res telegramResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&res); err != nil {
		return fmt.Errorf("telegram %s http %d: decode response: %w", method, resp.StatusCode, err)
	}
	if !res.OK {
		description := strings.TrimSpace(res.Description)
		if description == "" {
			description = "request failed"
		}
		return fmt.Errorf("telegram %s http %d: %s", method, resp.StatusCode, description)
	}

	if out != nil && len(res.Result) > 0 {
		if err := json.Unmarshal(res.Result, out); err != nil {
			return fmt.Errorf("telegram %s: decode result: %w", method, err)
		}
	}
	return nil
}

// SendMessage implements MessageChannel. Long texts are split into several messages.
func (t *TelegramClient) SendMessage(ctx context.Context, chatID, text string) error {
	for _, part := range splitTelegramMessage(text, maxTelegramMessage) {
		payload := map[string]string{"chat_id": chatID, "text": part}
		if err := t.call(ctx, t.client, "sendMessage", payload, nil); err != nil {
			return err
		}
	}
	return nil
}

// FetchAttachment implements MessageChannel.
func (t *TelegramClient) FetchAttachment(ctx context.Context, fileID string) (*FetchedFile, error) {
	ctx, cancel := context.WithTimeout(ctx, t.fileTimeout)
	defer cancel()

	var file models.TelegramFile
	if err := t.call(ctx, t.client, "getFile", map[string]string{"file_id": fileID}, &file); err != nil {
		return nil, err
	}
	if file.FilePath == "" {
		return nil, fmt.Errorf("telegram getFile: file path not found")
	}
	if t.maxFileSize > 0 && file.FileSize > t.maxFileSize {
		return nil, fmt.Errorf("telegram file too large: %d bytes", file.FileSize)
	}

	endpoint := fmt.Sprintf("%s/file/bot%s/%s", t.baseURL, t.token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("telegram file download: %w", err)
	}

	downloader := &http.Client{Timeout: t.fileTimeout}
	resp, err := downloader.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram file download: %s", redactToken(err.Error(), t.token))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("telegram file download http %d", resp.StatusCode)
	}

	reader := io.Reader(resp.Body)
	if t.maxFileSize > 0 {
		reader = io.LimitReader(resp.Body, t.maxFileSize+1)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("telegram file download: %w", err)
	}
	if t.maxFileSize > 0 && int64(len(content)) > t.maxFileSize {
		return nil, fmt.Errorf("telegram file too large: more than %d bytes", t.maxFileSize)
	}

	return &FetchedFile{RemotePath: file.FilePath, Content: content}, nil
}

// SetWebhook registers url as the update target.
func (t *TelegramClient) SetWebhook(ctx context.Context, webhookURL, secret string) error {
	payload := map[string]string{"url": webhookURL}
	if secret != "" {
		payload["secret_token"] = secret
	}
	return t.call(ctx, t.client, "setWebhook", payload, nil)
}

// DeleteWebhook is required before long polling can receive updates.
func (t *TelegramClient) DeleteWebhook(ctx context.Context) error {
	return t.call(ctx, t.client, "deleteWebhook", map[string]bool{"drop_pending_updates": false}, nil)
}

func (t *TelegramClient) GetWebhookInfo(ctx context.Context) (*models.TelegramWebhookInfo, error) {
	var info models.TelegramWebhookInfo
	if err := t.call(ctx, t.client, "getWebhookInfo", map[string]string{}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetUpdates long-polls for updates after offset and returns the next offset.
func (t *TelegramClient) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]models.TelegramUpdate, int64, error) {
	timeoutSec := int(timeout / time.Second)
	payload := map[string]any{
		"timeout":         timeoutSec,
		"allowed_updates": []string{"message", "edited_message"},
	}
	if offset > 0 {
		payload["offset"] = offset
	}

	poller := &http.Client{Timeout: timeout + 15*time.Second}
	var updates []models.TelegramUpdate
	if err := t.call(ctx, poller, "getUpdates", payload, &updates); err != nil {
		return nil, offset, err
	}

	next := offset
	for _, upd := range updates {
		if upd.UpdateID >= next {
			next = upd.UpdateID + 1
		}
	}
	return updates, next, nil
}

// AttachmentExtension picks a file extension for a stored attachment.
func AttachmentExtension(att *Attachment, remotePath string) string {
	if att != nil && att.Source == models.SourcePhoto {
		return ".jpg"
	}
	if att != nil {
		if ext := path.Ext(att.FileName); ext != "" {
			return strings.ToLower(ext)
		}
	}
	if ext := path.Ext(remotePath); ext != "" {
		return strings.ToLower(ext)
	}
	return ".bin"
}

func chatIDString(id int64) string {
	return strconv.FormatInt(id, 10)
}

func splitTelegramMessage(text string, maxRunes int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return []string{text}
	}

	var out []string
	for start := 0; start < len(runes); {
		end := start + maxRunes
		if end >= len(runes) {
			out = append(out, strings.TrimSpace(string(runes[start:])))
			break
		}
		split := end
		for i := end; i > start+(maxRunes/2); i-- {
			if runes[i-1] == '\n' {
				split = i
				break
			}
		}
		if chunk := strings.TrimSpace(string(runes[start:split])); chunk != "" {
			out = append(out, chunk)
		}
		start = split
	}
	return out
}

// redactToken keeps the bot token out of logged transport errors, which
// embed the request URL.
func redactToken(msg, token string) string {
	if token == "" {
		return msg
	}
	return strings.ReplaceAll(msg, token, "<token>")
}
