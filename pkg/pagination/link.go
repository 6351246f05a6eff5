package pagination

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Link is a single pagination target.
type Link struct {
	// URL is the absolute URL of the page.
	URL string `json:"url,omitempty"`

	// Page is the value of the page query parameter (0 if absent).
	Page int `json:"page,omitempty"`
}

// IsZero reports whether the link is unset.
func (l Link) IsZero() bool {
	return l.URL == ""
}

// Links holds the relation targets found in a Link header.
type Links struct {
	First Link `json:"first"`
	Prev  Link `json:"prev"`
	Next  Link `json:"next"`
	Last  Link `json:"last"`
}

// HasNext reports whether another page follows.
func (l Links) HasNext() bool {
	return !l.Next.IsZero()
}

// CurrentPage infers the page number of the response that carried the links.
func (l Links) CurrentPage() int {
	switch {
	case l.Next.Page > 0:
		return l.Next.Page - 1
	case l.Prev.Page > 0:
		return l.Prev.Page + 1
	default:
		return 1
	}
}

// TotalPages returns the last page number. Without a last link the current
// page is the last one.
func (l Links) TotalPages() int {
	if l.Last.Page > 0 {
		return l.Last.Page
	}
	return l.CurrentPage()
}

// Parse parses the value of a Link header.
//
// Entries are comma separated and look like `<url>; rel="next"`. A rel may
// list several relation types separated by spaces. Unknown relations and
// malformed entries are ignored.
func Parse(header string) Links {
	var links Links
	if strings.TrimSpace(header) == "" {
		return links
	}

	for _, entry := range strings.Split(header, ",") {
		parts := strings.Split(entry, ";")
		if len(parts) < 2 {
			continue
		}

		target := strings.TrimSpace(parts[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		link := Link{URL: target[1 : len(target)-1]}
		link.Page = pageNumber(link.URL)

		for _, param := range parts[1:] {
			key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || strings.ToLower(strings.TrimSpace(key)) != "rel" {
				continue
			}
			value = strings.Trim(strings.TrimSpace(value), `"`)
			for _, rel := range strings.Fields(value) {
				links.set(strings.ToLower(rel), link)
			}
		}
	}

	return links
}

// FromResponse parses the Link header of resp.
func FromResponse(resp *http.Response) Links {
	if resp == nil {
		return Links{}
	}
	return Parse(resp.Header.Get("Link"))
}

func (l *Links) set(rel string, link Link) {
	switch rel {
	case "first":
		l.First = link
	case "prev", "previous":
		l.Prev = link
	case "next":
		l.Next = link
	case "last":
		l.Last = link
	}
}

// pageNumber extracts the page query parameter from rawURL.
func pageNumber(rawURL string) int {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	page, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil || page < 0 {
		return 0
	}
	return page
}
