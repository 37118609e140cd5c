package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/yuin/goldmark"
)

var tmplFuncs = template.FuncMap{
	"year": func() int { return time.Now().Year() },
}

var verificationTmpl = template.Must(template.New("verification").Funcs(tmplFuncs).Parse(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background:#f5f6f8;font-family:'Helvetica Neue',Arial,sans-serif;">
  <div style="max-width:560px;margin:24px auto;background:#ffffff;border-radius:8px;overflow:hidden;">
    <div style="background:#4f46e5;padding:20px 28px;">
      <h1 style="margin:0;color:#ffffff;font-size:20px;">Cecilia 论文订阅</h1>
    </div>
    <div style="padding:28px;">
      <p style="color:#374151;font-size:15px;">您好，</p>
      <p style="color:#374151;font-size:15px;">您正在订阅以下研究方向的每日论文摘要：</p>
      <p style="color:#111827;font-size:14px;font-weight:bold;">{{range $i, $t := .Topics}}{{if $i}}、{{end}}{{$t}}{{end}}</p>
      <p style="color:#374151;font-size:15px;">请在页面中输入以下验证码完成订阅：</p>
      <div style="text-align:center;margin:24px 0;">
        <span style="display:inline-block;background:#eef2ff;color:#4f46e5;font-size:32px;font-weight:bold;letter-spacing:8px;padding:12px 24px;border-radius:6px;">{{.Code}}</span>
      </div>
      <p style="color:#6b7280;font-size:13px;">验证码 {{.TTLMinutes}} 分钟内有效。如果这不是您的操作，请忽略此邮件。</p>
    </div>
    <div style="padding:16px 28px;background:#f9fafb;color:#9ca3af;font-size:12px;">
      &copy; {{year}} Cecilia
    </div>
  </div>
</body>
</html>`))

var digestTmpl = template.Must(template.New("digest").Funcs(tmplFuncs).Parse(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background:#f5f6f8;font-family:'Helvetica Neue',Arial,sans-serif;">
  <div style="max-width:680px;margin:24px auto;background:#ffffff;border-radius:8px;overflow:hidden;">
    <div style="background:#4f46e5;padding:20px 28px;">
      <h1 style="margin:0;color:#ffffff;font-size:20px;">{{.Topic}} 每日论文摘要</h1>
      <p style="margin:6px 0 0;color:#c7d2fe;font-size:13px;">{{.Date}} · 共 {{.Total}} 篇（新增 {{.NewCount}} 篇）</p>
    </div>
    <div style="padding:12px 28px 28px;">
      {{range .Papers}}
      <div style="border-bottom:1px solid #e5e7eb;padding:18px 0;">
        <h2 style="margin:0 0 6px;font-size:16px;color:#111827;">{{.Index}}. {{.Title}}</h2>
        <p style="margin:0 0 4px;color:#6b7280;font-size:13px;">{{.Authors}}</p>
        <p style="margin:0 0 10px;color:#9ca3af;font-size:12px;">{{.Categories}}</p>
        <div style="color:#374151;font-size:14px;line-height:1.6;">{{.SummaryHTML}}</div>
        <p style="margin:10px 0 0;"><a href="{{.PDFURL}}" style="color:#4f46e5;font-size:13px;">查看 PDF</a></p>
      </div>
      {{end}}
    </div>
    <div style="padding:16px 28px;background:#f9fafb;color:#9ca3af;font-size:12px;">
      &copy; {{year}} Cecilia · 自动生成，请勿回复
    </div>
  </div>
</body>
</html>`))

// DigestPaper is one paper section in the digest template.
type DigestPaper struct {
	Index       int
	Title       string
	Authors     string
	Categories  string
	PDFURL      string
	SummaryHTML template.HTML
}

// RenderVerification renders the verification-code email body.
func RenderVerification(code string, topics []string, ttl time.Duration) (string, error) {
	var buf bytes.Buffer
	err := verificationTmpl.Execute(&buf, map[string]any{
		"Code":       code,
		"Topics":     topics,
		"TTLMinutes": int(ttl.Minutes()),
	})
	if err != nil {
		return "", fmt.Errorf("mail: render verification: %w", err)
	}
	return buf.String(), nil
}

// RenderDigest renders the daily paper digest email body. Summaries are
// markdown and get converted to HTML here.
func RenderDigest(topic string, date time.Time, papers []DigestPaper, newCount int) (string, error) {
	var buf bytes.Buffer
	err := digestTmpl.Execute(&buf, map[string]any{
		"Topic":    topic,
		"Date":     date.Format("2006-01-02"),
		"Total":    len(papers),
		"NewCount": newCount,
		"Papers":   papers,
	})
	if err != nil {
		return "", fmt.Errorf("mail: render digest: %w", err)
	}
	return buf.String(), nil
}

// MarkdownToHTML converts summary markdown to sanitizable HTML for the
// digest template.
func MarkdownToHTML(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}
