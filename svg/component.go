package svg

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"unicode"
)

// Framework is the target of the component generator.
type Framework string

const (
	React Framework = "react"
	Vue   Framework = "vue"
)

// DefaultComponentName is used when no component name is given.
const DefaultComponentName = "SvgIcon"

// ErrComponentName is returned for a component name which is not a valid PascalCase identifier.
var ErrComponentName = errors.New("component name should be a PascalCase identifier")

// ComponentOptions configures the generated component.
type ComponentOptions struct {
	Framework     Framework
	TypeScript    bool
	ComponentName string
	DefaultExport bool
}

var (
	xmlDeclRe       = regexp.MustCompile(`(?i)<\?xml[^?]*\?>`)
	commentRe       = regexp.MustCompile(`<!--[\s\S]*?-->`)
	tagSpaceRe      = regexp.MustCompile(`>\s+<`)
	svgBodyRe       = regexp.MustCompile(`(?is)<svg([^>]*)>(.*)</svg>`)
	attrRe          = regexp.MustCompile(`([A-Za-z_][\w.:-]*)=["']([^"']*)["']`)
	attrNameRe      = regexp.MustCompile(`(\s)([A-Za-z_][\w.:-]*)=(["'])`)
	kebabRe         = regexp.MustCompile(`([a-zA-Z])[-:]([a-zA-Z])`)
	blankLinesRe    = regexp.MustCompile(`\n{3,}`)
	componentNameRe = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
)

// jsxAttrs lists the attributes whose JSX name is not the plain camelCase form.
var jsxAttrs = map[string]string{
	"class":       "className",
	"for":         "htmlFor",
	"tabindex":    "tabIndex",
	"xlink:href":  "xlinkHref",
	"xmlns:xlink": "xmlnsXlink",
	"xml:space":   "xmlSpace",
}

var reactTmpl = template.Must(template.New("react").Parse(
	`{{if .TypeScript}}import type React from 'react';

{{end}}{{if not .DefaultExport}}export {{end}}const {{.Name}} = (props{{if .TypeScript}}: React.SVGProps<SVGSVGElement>{{end}}) => (
  <svg
{{range .Attrs}}    {{.}}
{{end}}    {...props}
  >
    {{.Children}}
  </svg>
);
{{if .DefaultExport}}
export default {{.Name}};
{{end}}`))

var vueTmpl = template.Must(template.New("vue").Parse(
	`<script setup lang="ts">
defineOptions({
  name: '{{.Name}}',
  inheritAttrs: false,
});
</script>

<template>
  <svg
{{range .Attrs}}    {{.}}
{{end}}    v-bind="$attrs"
  >
    {{.Children}}
  </svg>
</template>`))

type componentData struct {
	Name          string
	TypeScript    bool
	DefaultExport bool
	Attrs         []string
	Children      string
}

// GenerateComponent wraps the markup into a React or Vue component. The fixed
// width and height of the root element are dropped so the size can be set
// through props or attributes.
func GenerateComponent(markup string, opts ComponentOptions) (string, error) {
	name := opts.ComponentName
	if name == "" {
		name = DefaultComponentName
	}
	if !componentNameRe.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrComponentName, name)
	}
	if _, err := Root([]byte(markup)); err != nil {
		return "", err
	}

	cleaned := xmlDeclRe.ReplaceAllString(markup, "")
	cleaned = commentRe.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(tagSpaceRe.ReplaceAllString(cleaned, "><"))

	m := svgBodyRe.FindStringSubmatch(cleaned)
	if m == nil {
		return "", ErrNoSVG
	}
	data := componentData{
		Name:          name,
		TypeScript:    opts.TypeScript,
		DefaultExport: opts.DefaultExport,
		Children:      strings.TrimSpace(m[2]),
	}

	jsx := opts.Framework != Vue
	for _, a := range attrRe.FindAllStringSubmatch(m[1], -1) {
		attr := a[1]
		if strings.EqualFold(attr, "width") || strings.EqualFold(attr, "height") {
			continue
		}
		if jsx {
			attr = JSXAttr(attr)
		}
		data.Attrs = append(data.Attrs, fmt.Sprintf(`%s="%s"`, attr, a[2]))
	}

	var (
		buf  bytes.Buffer
		tmpl *template.Template
	)
	switch opts.Framework {
	case React, "":
		data.Children = attrNameRe.ReplaceAllStringFunc(data.Children, func(s string) string {
			sm := attrNameRe.FindStringSubmatch(s)
			return sm[1] + JSXAttr(sm[2]) + "=" + sm[3]
		})
		tmpl = reactTmpl
	case Vue:
		tmpl = vueTmpl
	default:
		return "", fmt.Errorf("unsupported framework: %s", opts.Framework)
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return strings.TrimSpace(blankLinesRe.ReplaceAllString(buf.String(), "\n\n")), nil
}

// JSXAttr converts an SVG attribute name to its JSX form, e.g. stroke-width to strokeWidth.
func JSXAttr(name string) string {
	if jsx, ok := jsxAttrs[strings.ToLower(name)]; ok {
		return jsx
	}
	if strings.HasPrefix(name, "data-") || strings.HasPrefix(name, "aria-") {
		return name
	}
	// Applied twice because adjacent matches overlap on single letter segments.
	for i := 0; i < 2; i++ {
		name = kebabRe.ReplaceAllStringFunc(name, func(s string) string {
			return s[:1] + strings.ToUpper(s[2:])
		})
	}
	return name
}

// ComponentName derives a PascalCase component name from a file name,
// e.g. "arrow-left.svg" gives "ArrowLeft".
func ComponentName(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	var sb strings.Builder
	upper := true
	for _, r := range base {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if sb.Len() == 0 && unicode.IsDigit(r) {
			sb.WriteString("Svg")
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		sb.WriteRune(r)
	}
	if sb.Len() == 0 {
		return DefaultComponentName
	}
	return sb.String()
}
