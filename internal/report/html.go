package report

import (
	"encoding/base64"
	"html/template"
	"io"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
)

var htmlTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"logoURL": logoURL,
}).Parse(`<!doctype html>
<html lang="fr">
<head>
  <meta charset="utf-8" />
  <title>Rapport {{.Header.BusinessName}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; color: #222; }
    header { display: flex; align-items: center; gap: 16px; }
    header img { max-height: 64px; }
    .emoji { font-size: 48px; }
    .kpis { display: grid; grid-template-columns: repeat(4, 1fr); gap: 8px; margin: 16px 0; }
    .kpi { border: 1px solid #ddd; border-radius: 6px; padding: 8px; }
    .kpi b { display: block; font-size: 18px; }
    table { width: 100%; border-collapse: collapse; margin: 8px 0 16px; page-break-inside: auto; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    td.num { text-align: right; }
    @media print { section { page-break-inside: avoid; } }
  </style>
</head>
<body>
  <header>
    {{with .Header.Logo}}{{if eq .Kind "bitmap"}}<img src="{{logoURL .}}" alt="logo" />{{else if eq .Kind "emoji"}}<span class="emoji">{{.Emoji}}</span>{{end}}{{end}}
    <div>
      <h1>{{.Header.BusinessName}}</h1>
      <p>{{.Header.Period}} · édité le {{.Header.GeneratedAt.Format "02/01/2006 15:04"}}</p>
    </div>
  </header>

  <div class="kpis">
    {{range .KPIs}}<div class="kpi">{{.Label}}<b>{{.Value.Text}}</b></div>{{end}}
  </div>

  {{range .Tables}}
  <section>
    <h2>{{.Title}}</h2>
    {{if .Rows}}
    <table>
      <thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
      <tbody>{{range .Rows}}<tr>{{range .}}<td{{if .Numeric}} class="num"{{end}}>{{.Text}}</td>{{end}}</tr>{{end}}</tbody>
    </table>
    {{else}}
    <p>Aucune donnée.</p>
    {{end}}
  </section>
  {{end}}
</body>
</html>
`))

// RenderHTML writes a printable page. Browsers print it to PDF.
func RenderHTML(w io.Writer, doc Document) error {
	return htmlTmpl.Execute(w, doc)
}

// logoURL inlines a bitmap logo. The MIME type comes from content sniffing
// at upload time, never from the client.
func logoURL(img domain.Image) template.URL {
	if img.Kind != domain.ImageBitmap || len(img.Data) == 0 {
		return ""
	}
	return template.URL("data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data))
}
