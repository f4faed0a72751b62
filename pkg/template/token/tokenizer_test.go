package token

import (
	"testing"

	"github.com/weftui/weft/pkg/config"
)

func allTokens(t *testing.T, tz *Tokenizer) []Token {
	t.Helper()
	var out []Token
	for {
		tok := tz.Next()
		out = append(out, tok)
		if tok.Kind == KindEOF {
			return out
		}
	}
}

func TestTokenizer_TextAndElement(t *testing.T) {
	tz := New(`<div class="a">Hi</div>`, Delimiters{})
	toks := allTokens(t, tz)

	if toks[0].Kind != KindStartTag || toks[0].Tag != "div" {
		t.Fatalf("expected a div start tag, got %+v", toks[0])
	}
	if len(toks[0].Attrs) != 1 || toks[0].Attrs[0].Name != "class" || toks[0].Attrs[0].Value != "a" {
		t.Fatalf("unexpected attrs: %+v", toks[0].Attrs)
	}
	if toks[1].Kind != KindText || toks[1].Text != "Hi" {
		t.Fatalf("expected text 'Hi', got %+v", toks[1])
	}
	if toks[2].Kind != KindEndTag || toks[2].Tag != "div" {
		t.Fatalf("expected a div end tag, got %+v", toks[2])
	}
}

func TestTokenizer_Interpolation(t *testing.T) {
	tz := New(`before {{ name }} after`, Delimiters{})
	toks := allTokens(t, tz)
	if toks[0].Kind != KindText || toks[0].Text != "before " {
		t.Fatalf("unexpected leading text token: %+v", toks[0])
	}
	if toks[1].Kind != KindInterpolation || toks[1].Text != "name" {
		t.Fatalf("expected interpolation 'name', got %+v", toks[1])
	}
}

func TestTokenizer_Comment(t *testing.T) {
	tz := New(`<!-- note -->`, Delimiters{})
	toks := allTokens(t, tz)
	if toks[0].Kind != KindComment || toks[0].Text != " note " {
		t.Fatalf("unexpected comment token: %+v", toks[0])
	}
}

func TestTokenizer_NamedAndNumericEntities(t *testing.T) {
	tz := New(`Tom &amp; Jerry &#65; &#x42;`, Delimiters{})
	toks := allTokens(t, tz)
	if toks[0].Text != "Tom & Jerry A B" {
		t.Fatalf("unexpected decoded text: %q", toks[0].Text)
	}
}

func TestTokenizer_UnterminatedNamedEntityLeftLiteral(t *testing.T) {
	tz := New(`A &ampersand B`, Delimiters{})
	toks := allTokens(t, tz)
	if toks[0].Text != "A &ampersand B" {
		t.Fatalf("expected unterminated entity left literal, got %q", toks[0].Text)
	}
}

func TestTokenizer_SelfClosingAndVoidTags(t *testing.T) {
	tz := New(`<img src="a.png"/>`, Delimiters{})
	toks := allTokens(t, tz)
	if !toks[0].SelfClosing {
		t.Errorf("expected SelfClosing to be true")
	}
}

func TestTokenizer_DuplicateAttributeReportsError(t *testing.T) {
	tz := New(`<div class="a" class="b">`, Delimiters{})
	allTokens(t, tz)
	if len(tz.Errors()) != 1 || tz.Errors()[0].Message != "duplicate-attribute" {
		t.Fatalf("expected one duplicate-attribute error, got %v", tz.Errors())
	}
}

func TestTokenizer_MissingInterpolationEndReportsError(t *testing.T) {
	tz := New(`{{ unterminated`, Delimiters{})
	allTokens(t, tz)
	if len(tz.Errors()) != 1 || tz.Errors()[0].Message != "missing-interpolation-end" {
		t.Fatalf("expected missing-interpolation-end error, got %v", tz.Errors())
	}
}

func TestTokenizer_ModeBaseNeverEntersRawText(t *testing.T) {
	tz := New(`<script>if (a < b) {}</script>`, Delimiters{})
	toks := allTokens(t, tz)
	// In ModeBase "a < b" gets scanned as ordinary content: "<" followed
	// by a space isn't a tag start, so it comes through as text. This
	// test checks that the stream still opens with the script start tag
	// and that tokenizing terminates.
	if toks[0].Kind != KindStartTag || toks[0].Tag != "script" {
		t.Fatalf("expected a script start tag, got %+v", toks[0])
	}
}

func TestTokenizer_HTMLModeTreatsScriptAsRawText(t *testing.T) {
	cfg := config.Default()
	tz := NewWithConfig(`<script>if (a < b) { x(); }</script>done`, Delimiters{}, cfg)
	toks := allTokens(t, tz)

	if toks[0].Kind != KindStartTag || toks[0].Tag != "script" {
		t.Fatalf("expected a script start tag, got %+v", toks[0])
	}
	if toks[1].Kind != KindText || toks[1].Text != "if (a < b) { x(); }" {
		t.Fatalf("expected the entire script body as one literal text token, got %+v", toks[1])
	}
	if toks[2].Kind != KindEndTag || toks[2].Tag != "script" {
		t.Fatalf("expected the script end tag to end RAWTEXT mode, got %+v", toks[2])
	}
	if toks[3].Kind != KindText || toks[3].Text != "done" {
		t.Fatalf("expected ordinary tokenizing to resume after </script>, got %+v", toks[3])
	}
}

func TestTokenizer_HTMLModeRawTextIgnoresEntitiesAndInterpolation(t *testing.T) {
	cfg := config.Default()
	tz := NewWithConfig(`<style>.a::before{content:"&amp;{{ x }}"}</style>`, Delimiters{}, cfg)
	toks := allTokens(t, tz)
	if toks[1].Kind != KindText || toks[1].Text != `.a::before{content:"&amp;{{ x }}"}` {
		t.Fatalf("expected RAWTEXT to skip entity decoding and interpolation, got %+v", toks[1])
	}
}

func TestTokenizer_HTMLModeTextareaIsRCDATA(t *testing.T) {
	cfg := config.Default()
	tz := NewWithConfig(`<textarea>Hi &amp; {{ name }}</textarea>`, Delimiters{}, cfg)
	toks := allTokens(t, tz)

	if toks[0].Kind != KindStartTag || toks[0].Tag != "textarea" {
		t.Fatalf("expected a textarea start tag, got %+v", toks[0])
	}
	if toks[1].Kind != KindText || toks[1].Text != "Hi & " {
		t.Fatalf("expected RCDATA to decode entities, got %+v", toks[1])
	}
	if toks[2].Kind != KindInterpolation || toks[2].Text != "name" {
		t.Fatalf("expected RCDATA to still parse interpolation, got %+v", toks[2])
	}
	if toks[3].Kind != KindEndTag || toks[3].Tag != "textarea" {
		t.Fatalf("expected the textarea end tag, got %+v", toks[3])
	}
}

func TestTokenizer_RawTextDoesNotStopAtUnrelatedCloseTag(t *testing.T) {
	cfg := config.Default()
	tz := NewWithConfig(`<script>var s = "</div>";</script>`, Delimiters{}, cfg)
	toks := allTokens(t, tz)
	if toks[1].Kind != KindText || toks[1].Text != `var s = "</div>";` {
		t.Fatalf("expected the </div> literal to stay inside the script body, got %+v", toks[1])
	}
	if toks[2].Kind != KindEndTag || toks[2].Tag != "script" {
		t.Fatalf("expected </script> to end RAWTEXT mode, got %+v", toks[2])
	}
}
