package direct

import (
	"bytes"
	"errors"
	"net/url"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

var (
	spacesRe = regexp.MustCompile(`[ \t\r\f\v]+`)
	linesRe  = regexp.MustCompile(`\n{3,}`)

	noiseSelectors = strings.Join([]string{
		"script", "style", "noscript", "iframe", "svg",
		"header", "footer", "nav", "aside",
		"[role=navigation]", "[role=banner]", "[role=contentinfo]",
	}, ", ")
)

var errEmptyContent = errors.New("no readable content")

// extractContent turns an HTML page into markdown. Readability is tried first,
// then the page body text.
func extractContent(body []byte, pageURL *url.URL, logger *zap.Logger) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil {
		if strings.TrimSpace(article.Content) != "" {
			md, convErr := htmltomarkdown.ConvertString(article.Content)
			if convErr == nil && strings.TrimSpace(md) != "" {
				return strings.TrimSpace(md), nil
			}
			logger.Debug("markdown conversion failed", zap.Error(convErr))
		}
		if text := cleanText(article.TextContent); text != "" {
			return text, nil
		}
	} else {
		logger.Debug("readability failed", zap.String("url", pageURL.String()), zap.Error(err))
	}

	return extractBodyText(body)
}

func extractBodyText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	doc.Find(noiseSelectors).Remove()

	selection := doc.Find("article, main, [role=main], #content, .content").First()
	if selection.Length() == 0 {
		selection = doc.Find("body")
	}

	text := cleanText(selection.Text())
	if text == "" {
		return "", errEmptyContent
	}

	return text, nil
}

func cleanText(text string) string {
	text = spacesRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	return strings.TrimSpace(linesRe.ReplaceAllString(text, "\n\n"))
}
