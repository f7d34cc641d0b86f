// Package template renders the localized notification mails.
package template

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed catalog/notifications.yaml
var catalogFS embed.FS

// Supported languages in fallback order.
var supported = []language.Tag{language.Finnish, language.Swedish, language.English}

// Rendered is a mail ready for the sender.
type Rendered struct {
	Subject  string
	TextBody string
	HTMLBody string
}

type entry struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

type compiled struct {
	subject *template.Template
	body    *template.Template
}

type Catalog struct {
	templates map[string]map[string]compiled
	matcher   language.Matcher
	md        goldmark.Markdown
	policy    *bluemonday.Policy
}

// NewCatalog parses the built-in catalog.
func NewCatalog() (*Catalog, error) {
	raw, err := catalogFS.ReadFile("catalog/notifications.yaml")
	if err != nil {
		return nil, err
	}
	return ParseCatalog(raw)
}

// ParseCatalog parses a yaml document of name -> language -> {subject, body}.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var doc map[string]map[string]entry
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse notification catalog: %w", err)
	}

	c := &Catalog{
		templates: make(map[string]map[string]compiled, len(doc)),
		matcher:   language.NewMatcher(supported),
		md: goldmark.New(
			goldmark.WithExtensions(extension.Linkify),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
	}

	for name, langs := range doc {
		c.templates[name] = make(map[string]compiled, len(langs))
		for lang, e := range langs {
			subj, err := template.New(name + "." + lang + ".subject").Parse(e.Subject)
			if err != nil {
				return nil, fmt.Errorf("template %s/%s subject: %w", name, lang, err)
			}
			body, err := template.New(name + "." + lang + ".body").Parse(e.Body)
			if err != nil {
				return nil, fmt.Errorf("template %s/%s body: %w", name, lang, err)
			}
			c.templates[name][lang] = compiled{subject: subj, body: body}
		}
	}
	return c, nil
}

// Language picks the supported language closest to preferred.
func (c *Catalog) Language(preferred string) string {
	tag, _ := language.MatchStrings(c.matcher, preferred)
	base, _ := tag.Base()
	return base.String()
}

// Render produces the mail for name in the language closest to preferred,
// falling back to Finnish when the template lacks that language.
func (c *Catalog) Render(name, preferred string, data any) (Rendered, error) {
	langs, ok := c.templates[name]
	if !ok {
		return Rendered{}, fmt.Errorf("unknown notification template %q", name)
	}
	t, ok := langs[c.Language(preferred)]
	if !ok {
		if t, ok = langs["fi"]; !ok {
			return Rendered{}, fmt.Errorf("template %q has no usable language", name)
		}
	}

	var subj, body bytes.Buffer
	if err := t.subject.Execute(&subj, data); err != nil {
		return Rendered{}, fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := t.body.Execute(&body, data); err != nil {
		return Rendered{}, fmt.Errorf("render %s body: %w", name, err)
	}

	var htmlBody bytes.Buffer
	if err := c.md.Convert(body.Bytes(), &htmlBody); err != nil {
		return Rendered{}, fmt.Errorf("render %s html: %w", name, err)
	}

	return Rendered{
		Subject:  strings.TrimSpace(subj.String()),
		TextBody: body.String(),
		HTMLBody: c.policy.Sanitize(htmlBody.String()),
	}, nil
}
