// Package jobs holds collections of scraped job postings and the exclude file.
package jobs

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spigell/resume-matcher/internal/ai"
)

const (
	PostingURLField  = "URL"
	PostingHostField = "Host"
)

type Postings struct {
	Items []ai.JobPosting `json:"items"`
}

type ExcludedPostings struct {
	Items []*ExcludedPosting `json:"items"`
}

type ExcludedPosting struct {
	URL        string    `json:"url"`
	Title      string    `json:"title,omitempty"`
	Host       string    `json:"host,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	ExcludedAt time.Time `json:"excluded_at"`
}

func NewPostings(items []ai.JobPosting) *Postings {
	return &Postings{Items: append([]ai.JobPosting(nil), items...)}
}

// Host returns the lowercased hostname of a posting URL.
func Host(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func (p *Postings) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "postings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	return file.Name(), nil
}

func (p *Postings) ToExcluded(reason string) *ExcludedPostings {
	now := time.Now().UTC()
	excluded := &ExcludedPostings{}
	for _, posting := range p.Items {
		excluded.Items = append(excluded.Items, &ExcludedPosting{
			URL:        posting.URL,
			Title:      posting.Title,
			Host:       Host(posting.URL),
			Reason:     reason,
			ExcludedAt: now,
		})
	}
	return excluded
}

// GetExcludedFromFile reads an exclude file. A missing or empty file yields an empty list.
func GetExcludedFromFile(path string) (*ExcludedPostings, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &ExcludedPostings{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedPostings{}, nil
	}

	var excluded ExcludedPostings
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

// Append adds entries whose URL is not yet present.
func (e *ExcludedPostings) Append(s *ExcludedPostings) {
	known := make(map[string]struct{}, len(e.Items))
	for _, item := range e.Items {
		known[item.URL] = struct{}{}
	}
	for _, item := range s.Items {
		if _, ok := known[item.URL]; ok {
			continue
		}
		known[item.URL] = struct{}{}
		e.Items = append(e.Items, item)
	}
}

func (e *ExcludedPostings) URLs() []string {
	urls := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		urls = append(urls, item.URL)
	}
	return urls
}

func (e *ExcludedPostings) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

func fieldValue(posting ai.JobPosting, name string) string {
	switch name {
	case PostingURLField:
		return posting.URL
	case PostingHostField:
		return Host(posting.URL)
	default:
		return ""
	}
}

func normalizeField(name, value string) string {
	value = strings.TrimSpace(value)
	if name == PostingHostField {
		return strings.ToLower(value)
	}
	return value
}

// ReportByHost groups postings by the host they are published on.
func (p *Postings) ReportByHost() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, posting := range p.Items {
		host := Host(posting.URL)
		report[host] = append(report[host], map[string]string{
			"title": posting.Title,
			"url":   posting.URL,
		})
	}
	return report
}

func (p *Postings) Len() int {
	return len(p.Items)
}

func (p *Postings) URLs() []string {
	urls := make([]string, 0, len(p.Items))
	for _, posting := range p.Items {
		urls = append(urls, posting.URL)
	}
	return urls
}

func (p *Postings) FindByURL(url string) *ai.JobPosting {
	for i := range p.Items {
		if p.Items[i].URL == url {
			return &p.Items[i]
		}
	}
	return nil
}

// Exclude removes every posting whose field matches one of targets and returns
// the URLs of removed postings. Order of the remaining postings is preserved.
func (p *Postings) Exclude(name string, targets []string) []string {
	if len(targets) == 0 || (name != PostingURLField && name != PostingHostField) {
		return nil
	}

	set := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		set[normalizeField(name, target)] = struct{}{}
	}

	var excluded []string
	kept := p.Items[:0]
	for _, posting := range p.Items {
		if _, ok := set[normalizeField(name, fieldValue(posting, name))]; ok {
			excluded = append(excluded, posting.URL)
			continue
		}
		kept = append(kept, posting)
	}
	p.Items = kept

	return excluded
}
