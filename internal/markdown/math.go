package markdown

import (
	mathjax "github.com/litao91/goldmark-mathjax"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Math typesets $inline$ and $$block$$ math as MathJax delimited spans.
// A single $ only opens inline math when the katex delimiter rules hold, so
// prose such as "$5 and $10" stays text.
var Math goldmark.Extender = &mathExtension{}

type mathExtension struct{}

func (e *mathExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithBlockParsers(util.Prioritized(mathjax.NewMathJaxBlockParser(), 701)),
		parser.WithInlineParsers(util.Prioritized(newDollarMathParser(), 501)),
	)
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(mathjax.NewMathBlockRenderer(`\[`, `\]`), 501),
		util.Prioritized(mathjax.NewInlineMathRenderer(`\(`, `\)`), 502),
	))
}

// dollarMathParser guards the mathjax inline parser. A rejected $ is emitted
// as a one byte text segment so the next $ on the line gets its own chance.
type dollarMathParser struct {
	inner parser.InlineParser
}

func newDollarMathParser() parser.InlineParser {
	return &dollarMathParser{inner: mathjax.NewInlineMathParser()}
}

func (p *dollarMathParser) Trigger() []byte {
	return []byte{'$'}
}

func (p *dollarMathParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, segment := block.PeekLine()
	if len(line) > 1 && line[1] == '$' {
		return p.inner.Parse(parent, block, pc)
	}
	if !validInlineMath(line) {
		block.Advance(1)
		return ast.NewTextSegment(segment.WithStop(segment.Start + 1))
	}
	return p.inner.Parse(parent, block, pc)
}

// validInlineMath applies the katex rules to a line starting with a single $:
// the opener is not followed by whitespace, and the first closing $ on the
// line is neither preceded by whitespace nor followed by a digit.
func validInlineMath(line []byte) bool {
	if len(line) < 3 || util.IsSpace(line[1]) {
		return false
	}
	for i := 2; i < len(line); i++ {
		if line[i] != '$' {
			continue
		}
		if util.IsSpace(line[i-1]) {
			return false
		}
		if i+1 < len(line) && line[i+1] >= '0' && line[i+1] <= '9' {
			return false
		}
		return true
	}
	return false
}
