// Package mailing builds draft email campaigns from RSS/Atom feeds.
package mailing

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ignite/crm-backoffice/internal/delivery"
	"github.com/ignite/crm-backoffice/internal/domain"
	"github.com/ignite/crm-backoffice/internal/pkg/httpretry"
)

// FeedItem represents a single item from an RSS feed
type FeedItem struct {
	GUID        string    `json:"guid"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	PubDate     time.Time `json:"pub_date"`
	ImageURL    string    `json:"image_url,omitempty"`
	Author      string    `json:"author,omitempty"`
	Categories  []string  `json:"categories,omitempty"`
	Content     string    `json:"content,omitempty"`
}

// DraftDefaults carries the campaign fields a feed item cannot supply.
type DraftDefaults struct {
	ProjectID       string
	ListID          string
	FromName        string
	FromEmail       string
	ReplyTo         string
	SubjectTemplate string // Liquid template over the rss context
	ContentTemplate string // empty means the built-in HTML layout
}

// FeedSource fetches feed items and turns them into draft campaigns.
type FeedSource struct {
	parser   *gofeed.Parser
	renderer *delivery.Renderer
	maxItems int
}

// NewFeedSource creates a feed source. maxItems caps items per fetch;
// zero means 5.
func NewFeedSource(renderer *delivery.Renderer, maxItems int) *FeedSource {
	if maxItems == 0 {
		maxItems = 5
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{
		Transport: httpretry.NewTransport(nil, 3),
		Timeout:   30 * time.Second,
	}
	return &FeedSource{
		parser:   parser,
		renderer: renderer,
		maxItems: maxItems,
	}
}

// Fetch retrieves and parses a feed, returning at most maxItems items,
// newest first as the feed orders them.
func (s *FeedSource) Fetch(ctx context.Context, feedURL string) ([]FeedItem, error) {
	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w", feedURL, err)
	}

	items := make([]FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if len(items) >= s.maxItems {
			break
		}
		items = append(items, parseFeedItem(it))
	}
	return items, nil
}

// Validate fetches the feed once to confirm the URL parses.
func (s *FeedSource) Validate(ctx context.Context, feedURL string) error {
	_, err := s.parser.ParseURLWithContext(feedURL, ctx)
	return err
}

// BuildDraft turns one feed item into a draft campaign for the given list.
// The subject template and content template render against an "rss"
// context; an empty content template uses the built-in layout.
func (s *FeedSource) BuildDraft(item FeedItem, def DraftDefaults) (*domain.EmailCampaign, error) {
	subjectTpl := def.SubjectTemplate
	if subjectTpl == "" {
		subjectTpl = "{{ rss.title }}"
	}

	rssCtx := map[string]interface{}{
		"rss": map[string]interface{}{
			"title":       item.Title,
			"description": item.Description,
			"link":        item.Link,
			"author":      item.Author,
			"image_url":   item.ImageURL,
			"pub_date":    item.PubDate,
		},
	}

	subject, err := s.renderer.Render("", subjectTpl, rssCtx)
	if err != nil {
		return nil, fmt.Errorf("rendering subject: %w", err)
	}

	var content string
	if def.ContentTemplate != "" {
		content, err = s.renderer.Render("", def.ContentTemplate, rssCtx)
		if err != nil {
			return nil, fmt.Errorf("rendering content: %w", err)
		}
	} else {
		content = defaultItemHTML(item)
	}

	now := time.Now().UTC()
	return &domain.EmailCampaign{
		ProjectID: def.ProjectID,
		ListID:    def.ListID,
		Name:      item.Title,
		Subject:   subject,
		Content:   content,
		FromName:  def.FromName,
		FromEmail: def.FromEmail,
		ReplyTo:   def.ReplyTo,
		Status:    domain.EmailCampaignDraft,
		Metrics:   domain.EmptyEmailMetrics(),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func parseFeedItem(item *gofeed.Item) FeedItem {
	feedItem := FeedItem{
		GUID:        item.GUID,
		Title:       item.Title,
		Description: stripHTML(item.Description),
		Link:        item.Link,
		Content:     item.Content,
	}

	// Use link as GUID if none provided
	if feedItem.GUID == "" {
		feedItem.GUID = item.Link
	}

	if item.PublishedParsed != nil {
		feedItem.PubDate = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		feedItem.PubDate = *item.UpdatedParsed
	} else {
		feedItem.PubDate = time.Now()
	}

	if item.Image != nil {
		feedItem.ImageURL = item.Image.URL
	} else if len(item.Enclosures) > 0 {
		for _, enc := range item.Enclosures {
			if strings.HasPrefix(enc.Type, "image/") {
				feedItem.ImageURL = enc.URL
				break
			}
		}
	}

	if len(item.Authors) > 0 {
		feedItem.Author = item.Authors[0].Name
	} else if item.Author != nil {
		feedItem.Author = item.Author.Name
	}

	feedItem.Categories = append(feedItem.Categories, item.Categories...)

	return feedItem
}

func defaultItemHTML(item FeedItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1>%s</h1>
    <p style="color: #666; font-size: 14px;">%s</p>
`, item.Title, item.PubDate.Format("January 2, 2006"))

	if item.ImageURL != "" {
		fmt.Fprintf(&b, `    <img src="%s" alt="%s" style="max-width: 100%%; height: auto;">
`, item.ImageURL, item.Title)
	}

	fmt.Fprintf(&b, `    <div>%s</div>
    <p><a href="%s">Read More</a></p>
</body>
</html>`, item.Description, item.Link)

	return b.String()
}

// stripHTML removes HTML tags from a string
func stripHTML(input string) string {
	re := regexp.MustCompile(`<[^>]*>`)
	text := re.ReplaceAllString(input, "")
	text = html.UnescapeString(text)
	text = strings.Join(strings.Fields(text), " ")
	return text
}
