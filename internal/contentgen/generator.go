/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package contentgen turns an approved topic into draft marketing copy.
//
// The production deployment plugs an AI text generator in behind Generator;
// TemplateGenerator is the built-in implementation used when none is configured.
package contentgen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/friendsincode/heirloom/internal/models"
)

// ErrEmptyTopic is returned when a topic has nothing to write about.
var ErrEmptyTopic = errors.New("topic has no title")

// Piece is one generated text.
type Piece struct {
	Title string
	Body  string
}

// Draft is the content generated for one topic. Newsletter is nil when the
// newsletter format was not requested.
type Draft struct {
	Blog       Piece
	Newsletter *Piece
	Socials    []Piece
}

// Request describes what to generate for a topic.
type Request struct {
	Topic       models.Topic
	Formats     []models.ContentKind
	SocialPosts int
}

// Wants reports whether kind was requested.
func (r Request) Wants(kind models.ContentKind) bool {
	for _, f := range r.Formats {
		if f == kind {
			return true
		}
	}
	return false
}

// Generator produces draft copy for a topic.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Draft, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (*Draft, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (*Draft, error) {
	return f(ctx, req)
}

var socialAngles = []string{
	"A question to ask at your next family dinner",
	"The story behind a photo",
	"Why this memory matters",
	"Start this weekend",
	"One thing to write down today",
}

const (
	blogTemplate = `{{ .Topic.Title }}

{{ if .Topic.Summary }}{{ .Topic.Summary }}

{{ end }}Every family carries stories that only live in a few people's memories. This post walks through "{{ .Topic.Title }}" and how to capture it before it fades.{{ if .Topic.Keywords }}

Keywords: {{ join .Topic.Keywords ", " }}{{ end }}
`
	newsletterTemplate = `This week on the blog: {{ .Topic.Title }}.
{{ if .Topic.Summary }}{{ .Topic.Summary }}
{{ end }}Read the full post and start preserving your own family's version of this story.
`
	socialTemplate = `{{ .Angle }}: {{ .Topic.Title }}{{ range .Tags }} #{{ . }}{{ end }}`
)

// TemplateGenerator renders copy from fixed text templates.
type TemplateGenerator struct {
	blog       *template.Template
	newsletter *template.Template
	social     *template.Template
}

// NewTemplateGenerator parses the built-in templates.
func NewTemplateGenerator() *TemplateGenerator {
	funcs := template.FuncMap{"join": strings.Join}
	return &TemplateGenerator{
		blog:       template.Must(template.New("blog").Funcs(funcs).Parse(blogTemplate)),
		newsletter: template.Must(template.New("newsletter").Funcs(funcs).Parse(newsletterTemplate)),
		social:     template.Must(template.New("social").Funcs(funcs).Parse(socialTemplate)),
	}
}

// Generate renders a blog post, an optional newsletter and req.SocialPosts social posts.
func (g *TemplateGenerator) Generate(ctx context.Context, req Request) (*Draft, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Topic.Title) == "" {
		return nil, ErrEmptyTopic
	}

	blogBody, err := render(g.blog, req)
	if err != nil {
		return nil, fmt.Errorf("render blog: %w", err)
	}
	draft := &Draft{Blog: Piece{Title: req.Topic.Title, Body: blogBody}}

	if req.Wants(models.ContentKindNewsletter) {
		body, err := render(g.newsletter, req)
		if err != nil {
			return nil, fmt.Errorf("render newsletter: %w", err)
		}
		draft.Newsletter = &Piece{Title: "Newsletter: " + req.Topic.Title, Body: body}
	}

	if req.Wants(models.ContentKindSocial) {
		tags := hashtags(req.Topic.Keywords)
		for i := 0; i < req.SocialPosts; i++ {
			angle := socialAngles[i%len(socialAngles)]
			body, err := render(g.social, map[string]any{"Angle": angle, "Topic": req.Topic, "Tags": tags})
			if err != nil {
				return nil, fmt.Errorf("render social post %d: %w", i, err)
			}
			draft.Socials = append(draft.Socials, Piece{
				Title: fmt.Sprintf("%s (social %d)", req.Topic.Title, i+1),
				Body:  body,
			})
		}
	}

	return draft, nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func hashtags(keywords []string) []string {
	tags := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		tag := strings.Map(func(r rune) rune {
			if r == ' ' || r == '-' || r == '#' {
				return -1
			}
			return r
		}, strings.ToLower(kw))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
