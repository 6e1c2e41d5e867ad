package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ert-inspection/internal/models"
)

// DocumentExporter renders a printable HTML document into a directory.
type DocumentExporter struct {
	dir  string
	tmpl *template.Template
}

func NewDocumentExporter(dir string) (*DocumentExporter, error) {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"image": imageURL,
		"date":  func(r *Report) string { return r.CreatedAt.Format("02 Jan 2006") },
		"upper": strings.ToUpper,
		"unfit": func(c models.Condition) bool { return c == models.ConditionTidakLayak },
	}).Parse(documentTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &DocumentExporter{dir: dir, tmpl: tmpl}, nil
}

func (e *DocumentExporter) Name() string { return "document" }

// Render writes the document for r to w.
func (e *DocumentExporter) Render(w io.Writer, r *Report) error {
	return e.tmpl.Execute(w, r)
}

// Export writes <inspection>-<yyyymmdd>-<id>.html and returns its path.
func (e *DocumentExporter) Export(ctx context.Context, r *Report) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := e.Render(&buf, r); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(e.dir, FileName(r))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// FileName is the document name for r.
func FileName(r *Report) string {
	id := r.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s-%s-%s.html", r.Inspection, r.CreatedAt.Format("20060102"), id)
}

// imageURL lets base64 image data URLs through the template's URL filter.
// Anything else renders as an empty src.
func imageURL(s string) template.URL {
	if models.IsDataURL(s) && strings.HasPrefix(s, "data:image/") {
		return template.URL(s)
	}
	return ""
}

const documentTemplate = `<!DOCTYPE html>
<html lang="id">
<head>
<meta charset="utf-8">
<title>{{.Title}} - {{.Area}}</title>
<style>
body { font-family: sans-serif; font-size: 12px; margin: 24px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #444; padding: 4px; vertical-align: top; }
th { background: #eee; }
.unfit { color: #b00; font-weight: bold; }
.signatures td { border: none; text-align: center; width: 50%; }
.signatures img, .photos img { max-height: 120px; }
</style>
</head>
<body>
<h1>{{upper .Title}}</h1>
<table>
<tr><th>Area</th><td>{{.Area}}</td><th>PIC</th><td>{{.PIC}}</td></tr>
<tr><th>Periode</th><td>{{.PeriodeInspeksi}}</td><th>Tanggal</th><td>{{date .}}</td></tr>
</table>
<p>Total {{.Summary.Total}} unit: {{.Summary.Layak}} LAYAK, {{.Summary.TidakLayak}} TIDAK LAYAK</p>
<table>
<tr><th>No</th><th>Tag</th><th>Data</th><th>Checklist</th><th>Kondisi</th><th>Keterangan</th></tr>
{{range .Units}}<tr>
<td>{{.No}}</td>
<td>{{.Tag}}</td>
<td>{{range $k, $v := .Fields}}{{$k}}: {{$v}}<br>{{end}}</td>
<td>{{range .Checklist}}{{.Label}}: {{.Result}}<br>{{end}}</td>
<td{{if unfit .Condition}} class="unfit"{{end}}>{{.Condition}}</td>
<td>{{.Notes}}</td>
</tr>
{{end}}</table>
{{if .Photos}}<h2>Dokumentasi</h2>
<div class="photos">{{range .Photos}}<img src="{{image .}}" alt="photo">{{end}}</div>
{{end}}
<table class="signatures">
<tr><td>Diketahui oleh</td><td>Diperiksa oleh</td></tr>
<tr><td>{{with .SignatureDiketahui}}<img src="{{image .}}" alt="signature">{{end}}</td><td>{{with .SignatureDiPeriksa}}<img src="{{image .}}" alt="signature">{{end}}</td></tr>
<tr><td>{{.DiketahuiOleh}}</td><td>{{.DiPeriksaOleh}}</td></tr>
</table>
</body>
</html>
`
