// Package config holds the compiler configuration the tokenizer,
// parser, and transform stages read: interpolation delimiters,
// whitespace policy, and the tag tables that drive namespace and
// element-kind classification. It loads from YAML with compiled-in
// HTML defaults, the way the teacher repo configures itself.
package config

import (
	"fmt"
	"os"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// WhitespaceMode selects how the parser condenses text-node whitespace.
type WhitespaceMode string

const (
	WhitespacePreserve WhitespaceMode = "preserve"
	WhitespaceCondense WhitespaceMode = "condense"
)

// ParseMode selects how the tokenizer treats tag content.
type ParseMode string

const (
	ModeBase ParseMode = "base"
	ModeHTML ParseMode = "html"
	ModeSFC  ParseMode = "sfc"
)

// CompilerConfig is the full set of knobs the compile pipeline
// consults. Zero value is invalid; use Default() or Load().
type CompilerConfig struct {
	DelimitersOpen  string         `yaml:"delimitersOpen"`
	DelimitersClose string         `yaml:"delimitersClose"`
	Whitespace      WhitespaceMode `yaml:"whitespace"`
	Mode            ParseMode      `yaml:"mode"`

	// NativeTags are tags the parser resolves to Element (never
	// Component) even without other hints.
	NativeTags []string `yaml:"nativeTags"`

	// VoidElements never accept children or a closing tag.
	VoidElements []string `yaml:"voidElements"`

	// RawTextTags are RAWTEXT under ModeHTML: no tag/entity parsing
	// until their own literal end-tag sequence.
	RawTextTags []string `yaml:"rawTextTags"`

	// RCDATATags parse entities and interpolation but never nested
	// tags, under ModeHTML.
	RCDATATags []string `yaml:"rcdataTags"`

	caser    cases.Caser
	hasCaser bool
}

// Default returns the HTML-flavored defaults the teacher's own
// template mode targets.
func Default() *CompilerConfig {
	c := &CompilerConfig{
		DelimitersOpen:  "{{",
		DelimitersClose: "}}",
		Whitespace:      WhitespaceCondense,
		Mode:            ModeHTML,
		NativeTags: []string{
			"div", "span", "p", "a", "ul", "ol", "li", "table", "tr", "td", "th",
			"thead", "tbody", "form", "input", "button", "select", "option",
			"textarea", "label", "img", "video", "audio", "canvas", "path",
			"h1", "h2", "h3", "h4", "h5", "h6", "header", "footer", "main", "nav",
			"section", "article", "aside", "br", "hr", "code", "pre", "b", "i", "em",
			"strong", "small", "figure", "figcaption", "iframe", "title",
			// namespace-entering/re-entering tags: svg and math switch
			// namespace on open, circle/foreignObject/desc are common enough
			// SVG children to list explicitly rather than leave every
			// non-HTML tag to fall back to TagComponent.
			"svg", "math", "circle", "foreignObject", "desc",
		},
		VoidElements: []string{
			"area", "base", "br", "col", "embed", "hr", "img", "input",
			"link", "meta", "param", "source", "track", "wbr",
		},
		RawTextTags: []string{"script", "style"},
		RCDATATags:  []string{"title", "textarea"},
	}
	c.ensureCaser()
	return c
}

// Load reads a YAML configuration file and layers it over Default().
func Load(path string) (*CompilerConfig, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.ensureCaser()
	return c, nil
}

// Fold case-folds s the way the parser's end-tag matcher and tag-table
// lookups do, so `<DIV>`/`<div>`/`<Div>` compare equal without a
// byte-by-byte ASCII lowercaser.
func (c *CompilerConfig) Fold(s string) string {
	c.ensureCaser()
	return c.caser.String(s)
}

func (c *CompilerConfig) ensureCaser() {
	if !c.hasCaser {
		c.caser = cases.Fold()
		c.hasCaser = true
	}
}

// SameTag reports whether two tag names are the same tag under the
// compiler's case-folding rule.
func (c *CompilerConfig) SameTag(a, b string) bool {
	return c.Fold(a) == c.Fold(b)
}

func (c *CompilerConfig) has(set []string, tag string) bool {
	folded := c.Fold(tag)
	for _, t := range set {
		if c.Fold(t) == folded {
			return true
		}
	}
	return false
}

func (c *CompilerConfig) IsNativeTag(tag string) bool   { return c.has(c.NativeTags, tag) }
func (c *CompilerConfig) IsVoidElement(tag string) bool { return c.has(c.VoidElements, tag) }
func (c *CompilerConfig) IsRawText(tag string) bool     { return c.has(c.RawTextTags, tag) }
func (c *CompilerConfig) IsRCDATA(tag string) bool      { return c.has(c.RCDATATags, tag) }
