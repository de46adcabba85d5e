package contentblocker

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/entrhq/webext/pkg/extension"
)

// filterable are the elements whose src can pull in third-party content.
var filterable = map[atom.Atom]bool{
	atom.Script: true,
	atom.Iframe: true,
	atom.Img:    true,
}

// stripBlockedElements removes filterable elements whose src host is
// blocked. It returns the rewritten document and the number of elements
// removed; with nothing removed the input is returned as is.
func stripBlockedElements(body []byte, blocked func(host string) bool) ([]byte, int, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}

	var doomed []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && filterable[n.DataAtom] {
			if host := srcHost(n); host != "" && blocked(host) {
				doomed = append(doomed, n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if len(doomed) == 0 {
		return body, 0, nil
	}
	for _, n := range doomed {
		n.Parent.RemoveChild(n)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), len(doomed), nil
}

func srcHost(n *html.Node) string {
	for _, attr := range n.Attr {
		if attr.Key != "src" {
			continue
		}
		src := strings.TrimSpace(attr.Val)
		switch {
		case strings.HasPrefix(src, "//"):
			return extension.HostFromURL("https:" + src)
		case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
			return extension.HostFromURL(src)
		default:
			// Relative and data: sources stay first-party.
			return ""
		}
	}
	return ""
}
