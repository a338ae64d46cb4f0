package chart

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/go-echarts/go-echarts/v2/components"
)

// Figure is a rendered chart plus the styling it was built with.
type Figure struct {
	Type   Type   `json:"type"`
	Title  string `json:"title"`
	Height int    `json:"height"`
	Layout Layout `json:"layout"`

	chart components.Charter
}

type renderer interface {
	Render(w io.Writer) error
}

// Render writes the figure as a standalone HTML page.
func (f *Figure) Render(w io.Writer) error {
	r, ok := f.chart.(renderer)
	if !ok {
		return fmt.Errorf("%s chart cannot be rendered", f.Type)
	}
	return r.Render(w)
}

// HTML returns the standalone page as a string.
func (f *Figure) HTML() (string, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Snippet is an embeddable chart fragment: the script tags loading ECharts
// and the chart's container with its init script.
type Snippet struct {
	Title  string
	Assets string
	Body   string
}

// HTML joins the assets and body.
func (s Snippet) HTML() string {
	return s.Assets + "\n" + s.Body
}

var assetTag = regexp.MustCompile(`<script src="[^"]*"></script>`)

// Snippet cuts the rendered page down to an embeddable fragment.
func (f *Figure) Snippet() (Snippet, error) {
	page, err := f.HTML()
	if err != nil {
		return Snippet{}, err
	}
	s := Snippet{Title: f.Title, Assets: strings.Join(assetTag.FindAllString(page, -1), "\n")}

	start := strings.Index(page, "<body>")
	end := strings.LastIndex(page, "</body>")
	if start < 0 || end < start {
		return Snippet{}, fmt.Errorf("rendered %s chart has no body", f.Type)
	}
	s.Body = strings.TrimSpace(page[start+len("<body>") : end])
	return s, nil
}

// RenderPage writes several figures into one page with a flex layout.
func RenderPage(w io.Writer, title string, figures ...*Figure) error {
	page := components.NewPage()
	page.PageTitle = title
	page.SetLayout(components.PageFlexLayout)
	for _, f := range figures {
		if f == nil || f.chart == nil {
			continue
		}
		page.AddCharts(f.chart)
	}
	return page.Render(w)
}
