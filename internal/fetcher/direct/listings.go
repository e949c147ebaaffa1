package direct

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/spigell/resume-matcher/internal/ai"
)

var (
	jobPathSegments = []string{"jobs", "job", "careers", "career", "positions", "openings", "vacancies"}
	atsHostSuffixes = []string{"greenhouse.io", "lever.co", "ashbyhq.com", "workable.com", "smartrecruiters.com"}
)

// extractListings returns every anchor on the page that points at a job posting.
func extractListings(body []byte, pageURL *url.URL) ([]ai.JobPosting, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var postings []ai.JobPosting

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link := resolveLink(pageURL, href)
		if link == nil || !isJobLink(link) || sameDocument(link, pageURL) {
			return
		}

		key := link.String()
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}

		postings = append(postings, ai.JobPosting{Title: anchorTitle(s, key), URL: key})
	})

	return postings, nil
}

func resolveLink(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil
	}

	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}

	link := base.ResolveReference(ref)
	if link.Scheme != "http" && link.Scheme != "https" {
		return nil
	}
	link.Fragment = ""

	return link
}

// isJobLink matches /jobs/<id>-style paths and deep links on known ATS hosts.
func isJobLink(link *url.URL) bool {
	segments := pathSegments(link.Path)

	host := strings.ToLower(link.Hostname())
	for _, suffix := range atsHostSuffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return len(segments) >= 2
		}
	}

	for i, segment := range segments {
		for _, keyword := range jobPathSegments {
			if strings.EqualFold(segment, keyword) && i < len(segments)-1 {
				return true
			}
		}
	}

	return false
}

func sameDocument(link, page *url.URL) bool {
	return strings.EqualFold(link.Host, page.Host) &&
		strings.TrimSuffix(link.Path, "/") == strings.TrimSuffix(page.Path, "/") &&
		link.RawQuery == page.RawQuery
}

func pathSegments(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

func anchorTitle(s *goquery.Selection, fallback string) string {
	title := strings.Join(strings.Fields(s.Text()), " ")
	if title == "" {
		title, _ = s.Attr("title")
		title = strings.TrimSpace(title)
	}
	if title == "" {
		title, _ = s.Attr("aria-label")
		title = strings.TrimSpace(title)
	}
	if title == "" {
		return fallback
	}
	return title
}
