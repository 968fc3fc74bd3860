package cookbook

import (
	"html"
	"regexp"
	"strings"
)

var boldText = regexp.MustCompile(`\*\*(.+?)\*\*`)

// FormatRecipeHTML renders the small markdown subset models use for recipes:
// #/##/### headings, "* " and "- " list items, **bold** and blank-line breaks.
// The input is escaped first so model output cannot inject markup.
func FormatRecipeHTML(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(html.EscapeString(text), "\n")

	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "### "):
			lines[i] = "<h3>" + line[4:] + "</h3>"
		case strings.HasPrefix(line, "## "):
			lines[i] = "<h2>" + line[3:] + "</h2>"
		case strings.HasPrefix(line, "# "):
			lines[i] = "<h1>" + line[2:] + "</h1>"
		case strings.HasPrefix(line, "* "), strings.HasPrefix(line, "- "):
			lines[i] = "<li>" + line[2:] + "</li>"
		}
	}

	out := strings.Join(lines, "\n")
	out = strings.ReplaceAll(out, "\n\n", "<br><br>")
	return boldText.ReplaceAllString(out, "<strong>$1</strong>")
}

// recipeTitle picks the first heading, or the first non-empty line.
func recipeTitle(text string) string {
	var first string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "#"))
		}
		if first == "" {
			first = line
		}
	}
	return strings.Trim(first, "*_ ")
}
