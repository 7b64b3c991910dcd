package telegram

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "time"

    "github.com/rs/zerolog"

    "github.com/mrVectorz/jira-status-automation/internal/config"
)

// maxMessageLen is the Telegram hard cap for a single message.
const maxMessageLen = 4000

type Client struct {
    token string
    http  *http.Client
    log   zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{token: cfg.TelegramToken, http: &http.Client{Timeout: 10 * time.Second}, log: log}
}

func (c *Client) post(ctx context.Context, method string, body map[string]any) error {
    url := fmt.Sprintf("https://api.telegram.org/bot%s/%s", c.token, method)
    b, _ := json.Marshal(body)
    req, _ := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(b))
    req.Header.Set("Content-Type", "application/json")
    resp, err := c.http.Do(req)
    if err != nil { return err }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        bodyBytes, _ := io.ReadAll(resp.Body)
        return fmt.Errorf("telegram %s status=%d body=%s", method, resp.StatusCode, string(bodyBytes))
    }
    return nil
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
    if c.token == "" || chatID == 0 { return fmt.Errorf("telegram: missing token or chat id") }
    return c.post(ctx, "sendMessage", map[string]any{
        "chat_id": chatID, "text": text, "parse_mode": "Markdown", "disable_web_page_preview": true,
    })
}

// SendMessagePlain sends without parse_mode to avoid markdown parsing errors
func (c *Client) SendMessagePlain(ctx context.Context, chatID int64, text string) error {
    if c.token == "" || chatID == 0 { return fmt.Errorf("telegram: missing token or chat id") }
    return c.post(ctx, "sendMessage", map[string]any{
        "chat_id": chatID, "text": text, "disable_web_page_preview": true,
    })
}

// SendReport splits a rendered report into chunks that fit the message cap
// and sends them in order. Falls back to plain mode when markdown is refused.
func (c *Client) SendReport(ctx context.Context, chatID int64, text string) error {
    for _, chunk := range Chunk(text, maxMessageLen) {
        if err := c.SendMessage(ctx, chatID, chunk); err != nil {
            c.log.Warn().Err(err).Int64("chat_id", chatID).Msg("markdown send failed, retrying plain")
            if err := c.SendMessagePlain(ctx, chatID, chunk); err != nil { return err }
        }
    }
    return nil
}

// Chunk splits text on line boundaries so no piece exceeds limit. A single
// line longer than the limit is split mid-line.
func Chunk(text string, limit int) []string {
    if len(text) <= limit { return []string{text} }
    var out []string
    var cur bytes.Buffer
    start := 0
    for i := 0; i <= len(text); i++ {
        if i == len(text) || text[i] == '\n' {
            line := text[start:i]
            start = i + 1
            if len(line) > limit && cur.Len() > 0 {
                out = append(out, cur.String())
                cur.Reset()
            }
            for len(line) > limit {
                out = append(out, line[:limit])
                line = line[limit:]
            }
            if cur.Len()+len(line)+1 > limit {
                out = append(out, cur.String())
                cur.Reset()
            }
            if cur.Len() > 0 { cur.WriteByte('\n') }
            cur.WriteString(line)
        }
    }
    if cur.Len() > 0 { out = append(out, cur.String()) }
    return out
}
