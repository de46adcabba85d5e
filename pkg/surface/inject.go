package surface

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/entrhq/webext/pkg/extension"
)

const injectedAttr = "data-webext"

// InjectScripts rewrites an HTML document so the registered scripts run at
// their timing: before-document scripts open <head>, on-dom-ready and
// on-page-complete scripts follow them wrapped in event listeners, and
// after-document scripts close <body>. Subframe documents only receive
// scripts not restricted to the main frame. A document with nothing to
// inject is returned unchanged.
func InjectScripts(document []byte, scripts []Registered, mainFrame bool) ([]byte, error) {
	if !mainFrame {
		filtered := make([]Registered, 0, len(scripts))
		for _, s := range scripts {
			if !s.MainFrameOnly {
				filtered = append(filtered, s)
			}
		}
		scripts = filtered
	}
	if len(scripts) == 0 {
		return document, nil
	}

	doc, err := html.Parse(bytes.NewReader(document))
	if err != nil {
		return nil, err
	}
	head, body := findElement(doc, atom.Head), findElement(doc, atom.Body)
	if head == nil || body == nil {
		return document, nil
	}

	removeCSPMeta(head)

	anchor := head.FirstChild
	insertHead := func(n *html.Node) {
		if anchor == nil {
			head.AppendChild(n)
			return
		}
		head.InsertBefore(n, anchor)
	}

	for _, timing := range extension.AllTimings() {
		for _, s := range scripts {
			if s.Timing != timing {
				continue
			}
			switch timing {
			case extension.TimingBeforeDocument:
				insertHead(scriptNode(s.Source, timing))
			case extension.TimingOnDOMReady:
				insertHead(scriptNode(onDOMReady(s.Source), timing))
			case extension.TimingOnPageComplete:
				insertHead(scriptNode(onPageComplete(s.Source), timing))
			case extension.TimingAfterDocument:
				body.AppendChild(scriptNode(s.Source, timing))
			}
		}
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func scriptNode(source string, timing extension.InjectionTiming) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Script,
		Data:     "script",
		Attr:     []html.Attribute{{Key: injectedAttr, Val: string(timing)}},
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: escapeScript(source)})
	return n
}

// escapeScript keeps a source from closing its own <script> element.
func escapeScript(source string) string {
	return strings.ReplaceAll(source, "</script", `<\/script`)
}

func onDOMReady(source string) string {
	return "(function () {\nvar run = function () {\n" + source + "\n};\n" +
		"if (document.readyState === 'loading') { document.addEventListener('DOMContentLoaded', run, { once: true }); } else { run(); }\n})();"
}

func onPageComplete(source string) string {
	return "(function () {\nvar run = function () {\n" + source + "\n};\n" +
		"if (document.readyState === 'complete') { run(); } else { window.addEventListener('load', run, { once: true }); }\n})();"
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// removeCSPMeta drops <meta http-equiv="Content-Security-Policy"> so inline
// injected scripts are not refused.
func removeCSPMeta(head *html.Node) {
	for c := head.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && c.DataAtom == atom.Meta {
			for _, attr := range c.Attr {
				if attr.Key == "http-equiv" && strings.EqualFold(attr.Val, "content-security-policy") {
					head.RemoveChild(c)
					break
				}
			}
		}
		c = next
	}
}
