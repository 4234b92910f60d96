package processing

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/tono-megu/ai-video-gen/models"
)

// slideTemplate is the fixed page shell shared by all slide types.
var slideTemplate = template.Must(template.New("slide").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { margin: 0; width: 1920px; height: 1080px; display: flex;
         align-items: center; justify-content: center;
         font-family: 'Helvetica Neue', Arial, sans-serif;
         background: #16213e; color: #eaeaea; }
  h1 { font-size: 96px; margin: 0 0 24px; }
  h2 { font-size: 64px; margin: 0 0 32px; }
  ul { font-size: 44px; line-height: 1.6; }
  .subtitle { font-size: 40px; color: #9fb4d0; }
  pre { background: #0d1117; padding: 40px; border-radius: 12px;
        font-size: 32px; overflow: hidden; }
  .keyword { color: #ff7b72; }
  .string { color: #a5d6ff; }
  .comment { color: #8b949e; }
</style>
</head>
<body>
{{ .Content }}
</body>
</html>
`))

// RenderSlideHTML renders a section's visual spec as a standalone HTML slide.
func RenderSlideHTML(visualSpec map[string]interface{}, sectionType string) (string, error) {
	content := slideContent(visualSpec, sectionType)

	var b strings.Builder
	err := slideTemplate.Execute(&b, struct{ Content template.HTML }{Content: template.HTML(content)})
	if err != nil {
		return "", fmt.Errorf("failed to render slide: %w", err)
	}
	return b.String(), nil
}

// RenderSlideDataURL renders the slide and wraps it as a data URL for preview.
func RenderSlideDataURL(visualSpec map[string]interface{}, sectionType string) (string, error) {
	page, err := RenderSlideHTML(visualSpec, sectionType)
	if err != nil {
		return "", err
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(page))
	return "data:text/html;base64," + encoded, nil
}

func slideContent(spec map[string]interface{}, sectionType string) string {
	switch sectionType {
	case models.SectionTitle:
		return fmt.Sprintf(`<div class="title-slide"><h1>%s</h1><p class="subtitle">%s</p></div>`,
			html.EscapeString(stringField(spec, "title")),
			html.EscapeString(stringField(spec, "subtitle")))

	case models.SectionSlide:
		return fmt.Sprintf(`<div class="content-slide"><h2>%s</h2><ul>%s</ul></div>`,
			html.EscapeString(stringField(spec, "heading")),
			listItems(spec, "bullets"))

	case models.SectionCode, models.SectionCodeTyping:
		language := stringField(spec, "language")
		if language == "" {
			language = "python"
		}
		return fmt.Sprintf(`<div class="code-slide"><h2>%s</h2><pre><code>%s</code></pre></div>`,
			html.EscapeString(strings.ToUpper(language)),
			highlightCode(stringField(spec, "code"), language))

	case models.SectionSummary:
		return fmt.Sprintf(`<div class="summary-slide"><h2>Summary</h2><ul>%s</ul></div>`,
			listItems(spec, "points"))

	case models.SectionDiagram:
		return fmt.Sprintf(`<div class="content-slide"><h2>Diagram</h2><p style="font-size: 32px; text-align: center;">%s</p></div>`,
			html.EscapeString(stringField(spec, "description")))

	default:
		// Generic fallback: show the raw spec.
		raw, _ := json.MarshalIndent(spec, "", "  ")
		return fmt.Sprintf(`<div class="content-slide"><pre style="font-size: 24px;">%s</pre></div>`,
			html.EscapeString(string(raw)))
	}
}

func stringField(spec map[string]interface{}, key string) string {
	if s, ok := spec[key].(string); ok {
		return s
	}
	return ""
}

func listItems(spec map[string]interface{}, key string) string {
	items, ok := spec[key].([]interface{})
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, item := range items {
		if s, ok := item.(string); ok {
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(s))
		}
	}
	return b.String()
}

// highlightCode applies a minimal keyword/string/comment highlight. Input is
// escaped first; the injected spans are the only markup.
func highlightCode(code, language string) string {
	escaped := html.EscapeString(code)

	var keywords []string
	var comment string
	switch language {
	case "python":
		keywords = []string{"def", "class", "if", "else", "elif", "for", "while", "return",
			"import", "from", "as", "try", "except", "with", "in", "not", "and", "or",
			"True", "False", "None"}
		comment = "#"
	case "javascript":
		keywords = []string{"const", "let", "var", "function", "if", "else", "for", "while",
			"return", "import", "export", "from", "async", "await", "try", "catch",
			"new", "class", "this", "true", "false", "null", "undefined"}
		comment = "//"
	case "go":
		keywords = []string{"func", "type", "struct", "interface", "if", "else", "for",
			"range", "return", "import", "package", "var", "const", "go", "defer",
			"chan", "select", "switch", "case", "nil", "true", "false"}
		comment = "//"
	default:
		return escaped
	}

	var out []string
	for _, line := range strings.Split(escaped, "\n") {
		if comment != "" {
			if idx := strings.Index(line, comment); idx >= 0 {
				line = line[:idx] + `<span class="comment">` + line[idx:] + `</span>`
				out = append(out, line)
				continue
			}
		}
		for _, kw := range keywords {
			line = replaceWord(line, kw, `<span class="keyword">`+kw+`</span>`)
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// replaceWord replaces whole-word occurrences of word in line.
func replaceWord(line, word, repl string) string {
	var b strings.Builder
	for len(line) > 0 {
		idx := strings.Index(line, word)
		if idx < 0 {
			b.WriteString(line)
			break
		}
		before := idx == 0 || isBoundary(line[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx == len(line) || isBoundary(line[afterIdx])
		b.WriteString(line[:idx])
		if before && after {
			b.WriteString(repl)
		} else {
			b.WriteString(word)
		}
		line = line[afterIdx:]
	}
	return b.String()
}

func isBoundary(c byte) bool {
	return !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_')
}
