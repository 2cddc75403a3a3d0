package display

import (
	"fmt"
	"html/template"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mohammad-safakhou/newsagent/tools/headlines"
)

// FileName is the HTML artifact rendered for the browser view.
const FileName = "bbc_headlines.html"

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; margin: 0; padding: 40px; background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: #fff; min-height: 100vh; }
.container { max-width: 800px; margin: 0 auto; background: rgba(255,255,255,0.1); border-radius: 12px; padding: 30px; }
h1 { margin-top: 0; }
ol { line-height: 1.9; font-size: 18px; }
.meta { font-size: 13px; opacity: 0.8; }
#countdown { font-weight: bold; }
</style>
</head>
<body>
<div class="container">
<h1>{{.Title}}</h1>
<p class="meta">Generated {{.Generated}}</p>
<ol>
{{range .Headlines}}<li>{{.}}</li>
{{end}}</ol>
<p class="meta">This window closes in <span id="countdown">{{.Seconds}}</span> seconds.</p>
</div>
<script>
var seconds = {{.Seconds}};
var el = document.getElementById("countdown");
var timer = setInterval(function() {
    seconds--;
    el.textContent = seconds;
    if (seconds <= 0) {
        clearInterval(timer);
        window.close();
    }
}, 1000);
</script>
</body>
</html>
`

type pageData struct {
	Title     string
	Generated string
	Headlines []string
	Seconds   int
}

// Tool renders the most recently fetched headlines into an HTML page with an
// embedded countdown. It reads the text artifact left behind by the headlines
// tool, so a fetch must happen first.
type Tool struct {
	dir    string
	wait   time.Duration
	tmpl   *template.Template
	logger *log.Logger
}

// New creates a display tool reading and writing artifacts under dir. wait is
// how long the rendered page announces it will stay open.
func New(dir string, wait time.Duration) *Tool {
	return &Tool{
		dir:    dir,
		wait:   wait,
		tmpl:   template.Must(template.New("headlines").Parse(pageTemplate)),
		logger: log.New(log.Writer(), "[DISPLAY] ", log.LstdFlags),
	}
}

// Show renders the saved headlines and returns a printable summary plus the
// HTML artifact path. Opening the page is the caller's job.
func (t *Tool) Show() (string, string, error) {
	titles, err := headlines.ReadSaved(t.dir)
	if err != nil {
		return "", "", err
	}

	path, err := t.render(titles)
	if err != nil {
		return "", "", err
	}
	t.logger.Printf("Rendered %d headlines to %s", len(titles), path)

	seconds := int(t.wait.Seconds())
	output := fmt.Sprintf("Displayed %d BBC headlines in a browser window (auto-closes after %d seconds)", len(titles), seconds)
	return output, path, nil
}

func (t *Tool) render(titles []string) (string, error) {
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifacts dir: %w", err)
	}
	path := filepath.Join(t.dir, FileName)

	var b strings.Builder
	data := pageData{
		Title:     "BBC News Headlines",
		Generated: time.Now().Format("2006-01-02 15:04:05"),
		Headlines: titles,
		Seconds:   int(t.wait.Seconds()),
	}
	if err := t.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering headline page: %w", err)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
