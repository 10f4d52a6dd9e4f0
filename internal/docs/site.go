// Package docs serves the operator documentation under /docs/. Pages are
// markdown files embedded in the binary and rendered once at startup.
package docs

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed pages/*.md
var pagesFS embed.FS

// Page holds a single rendered documentation page.
type Page struct {
	Slug  string
	Title string
	HTML  template.HTML
}

// Site holds all documentation pages in file name order.
type Site struct {
	Pages  []Page
	bySlug map[string]int
}

// New reads every embedded page and renders it with goldmark.
func New() (*Site, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	entries, err := pagesFS.ReadDir("pages")
	if err != nil {
		return nil, err
	}

	site := &Site{bySlug: map[string]int{}}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		data, err := pagesFS.ReadFile(path.Join("pages", e.Name()))
		if err != nil {
			return nil, err
		}

		// "01-overview.md" -> "overview"
		slug := strings.TrimSuffix(e.Name(), ".md")
		if _, rest, ok := strings.Cut(slug, "-"); ok {
			slug = rest
		}

		title := slug
		for _, line := range strings.Split(string(data), "\n") {
			if t, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
				title = t
				break
			}
		}

		var buf bytes.Buffer
		if err := md.Convert(data, &buf); err != nil {
			return nil, fmt.Errorf("render %s: %w", e.Name(), err)
		}

		site.bySlug[slug] = len(site.Pages)
		site.Pages = append(site.Pages, Page{
			Slug:  slug,
			Title: title,
			HTML:  template.HTML(buf.String()),
		})
	}
	return site, nil
}

// Page returns the page with the given slug.
func (s *Site) Page(slug string) (Page, bool) {
	i, ok := s.bySlug[slug]
	if !ok {
		return Page{}, false
	}
	return s.Pages[i], true
}

type pageVM struct {
	Pages   []Page
	Current Page
	Prev    *Page
	Next    *Page
}

var pageTmpl = template.Must(template.New("docs").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Current.Title}} - layercast</title>
<style>
body{font-family:system-ui,sans-serif;margin:0;display:flex;color:#ddd;background:#161616}
nav{width:14rem;padding:1rem;border-right:1px solid #333}
nav a{display:block;color:#9cf;padding:.2rem 0;text-decoration:none}
nav a.on{font-weight:bold;color:#fff}
main{padding:1rem 2rem;max-width:50rem}
code,pre{background:#222}
table{border-collapse:collapse}td,th{border:1px solid #333;padding:.2rem .5rem}
footer{margin-top:2rem;display:flex;justify-content:space-between}
footer a{color:#9cf}
</style>
</head>
<body>
<nav>{{range .Pages}}<a href="/docs/{{.Slug}}"{{if eq .Slug $.Current.Slug}} class="on"{{end}}>{{.Title}}</a>{{end}}</nav>
<main>
{{.Current.HTML}}
<footer>
<span>{{with .Prev}}<a href="/docs/{{.Slug}}">&larr; {{.Title}}</a>{{end}}</span>
<span>{{with .Next}}<a href="/docs/{{.Slug}}">{{.Title}} &rarr;</a>{{end}}</span>
</footer>
</main>
</body>
</html>
`))

// ServeHTTP serves /docs/<slug>. /docs and /docs/ redirect to the first page.
func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	slug := strings.Trim(strings.TrimPrefix(r.URL.Path, "/docs"), "/")
	if slug == "" {
		if len(s.Pages) == 0 {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/docs/"+s.Pages[0].Slug, http.StatusFound)
		return
	}

	i, ok := s.bySlug[slug]
	if !ok {
		http.NotFound(w, r)
		return
	}

	vm := pageVM{Pages: s.Pages, Current: s.Pages[i]}
	if i > 0 {
		vm.Prev = &s.Pages[i-1]
	}
	if i < len(s.Pages)-1 {
		vm.Next = &s.Pages[i+1]
	}

	w.Header().Set("content-type", "text/html; charset=utf-8")
	_ = pageTmpl.Execute(w, vm)
}
