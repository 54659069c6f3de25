package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/k-negishi/event-sync-notifier/internal/domain"
)

const (
	defaultUserAgent   = "event-sync-notifier/1.0"
	defaultFeedTimeout = 30 * time.Second
	maxFeedBytes       = 8 << 20
)

// feedErrorResponse フィード側のエラーレスポンス
type feedErrorResponse struct {
	Message string `json:"message"`
}

func newFeedHTTPClient() *http.Client {
	return &http.Client{
		Timeout: defaultFeedTimeout,
	}
}

// fetchFeedBody フィードを取得して本文を返す
// 失敗はすべて domain.ErrFeedUnavailable を包んで返す。
func fetchFeedBody(ctx context.Context, client *http.Client, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: HTTPリクエストの作成に失敗しました: %w", domain.ErrFeedUnavailable, err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: フィードの取得に失敗しました: %w", domain.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// エラーレスポンスの詳細を取得
		var errorResponse feedErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errorResponse); err != nil || errorResponse.Message == "" {
			return nil, fmt.Errorf("%w: フィードの取得に失敗しました (Status: %d)", domain.ErrFeedUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: フィードの取得に失敗しました (Status: %d): %s",
			domain.ErrFeedUnavailable, resp.StatusCode, errorResponse.Message)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: レスポンスの読み込みに失敗しました: %w", domain.ErrFeedUnavailable, err)
	}
	return body, nil
}

// paragraphs HTML断片から空でない段落のテキストを順に取り出す
// <p> がない場合は全体を1段落として扱う。
func paragraphs(fragment string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		if text := strings.TrimSpace(fragment); text != "" {
			return []string{text}
		}
		return nil
	}

	var out []string
	selection := doc.Find("p")
	if selection.Length() == 0 {
		if text := strings.TrimSpace(doc.Text()); text != "" {
			out = append(out, text)
		}
		return out
	}

	selection.Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

// htmlToText HTMLを段落ごとに改行したプレーンテキストに変換
func htmlToText(fragment string) string {
	return strings.Join(paragraphs(fragment), "\n")
}
