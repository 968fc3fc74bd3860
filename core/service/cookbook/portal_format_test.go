package cookbook

import "testing"

func TestFormatRecipeHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"headings", "# A\n## B\n### C", "<h1>A</h1>\n<h2>B</h2>\n<h3>C</h3>"},
		{"list items", "* one\n- two", "<li>one</li>\n<li>two</li>"},
		{"paragraph break", "a\n\nb", "a<br><br>b"},
		{"bold", "**x** and **y**", "<strong>x</strong> and <strong>y</strong>"},
		{"escapes markup", "# <script>alert(1)</script>", "<h1>&lt;script&gt;alert(1)&lt;/script&gt;</h1>"},
		{"escapes attributes", `<img src=x onerror="y">`, "&lt;img src=x onerror=&#34;y&#34;&gt;"},
		{"crlf", "# T\r\n\r\nbody", "<h1>T</h1><br><br>body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatRecipeHTML(tt.in); got != tt.want {
				t.Errorf("FormatRecipeHTML() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecipeTitle(t *testing.T) {
	tests := []struct{ in, want string }{
		{"\n# Pierogi\n- mąka", "Pierogi"},
		{"**Naleśniki**\n\n## Składniki", "Składniki"},
		{"just text", "just text"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := recipeTitle(tt.in); got != tt.want {
			t.Errorf("recipeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
