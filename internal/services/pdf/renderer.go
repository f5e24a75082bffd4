package pdf

import (
	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	bodySize   = 9.0
	lineHeight = 5.0
)

var parser = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
).Parser()

// renderer draws goldmark ASTs onto a PDF with the core fonts. Text is
// translated from UTF-8 to the fonts' code page.
type renderer struct {
	pdf       *fpdf.Fpdf
	tr        func(string) string
	source    []byte
	bold      bool
	italic    bool
	listLevel int
}

func newRenderer(pdf *fpdf.Fpdf) *renderer {
	return &renderer{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

func (r *renderer) markdown(markdown string) {
	r.source = []byte(markdown)
	doc := parser.Parse(text.NewReader(r.source))
	_ = ast.Walk(doc, r.walk)
	r.bold, r.italic, r.listLevel = false, false, 0
	r.updateFont()
}

func (r *renderer) write(s string) {
	r.pdf.Write(lineHeight, r.tr(s))
}

func (r *renderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont("Arial", style, bodySize)
}

func (r *renderer) heading(level int, s string) {
	r.pdf.Ln(4)
	r.pdf.SetFont("Arial", "B", headingSize(level))
	r.write(s)
	r.pdf.Ln(8)
	r.updateFont()
}

func (r *renderer) rule() {
	r.pdf.Ln(3)
	r.pdf.Line(10, r.pdf.GetY(), 200, r.pdf.GetY())
	r.pdf.Ln(3)
}

func (r *renderer) caption(s string) {
	r.pdf.SetFont("Arial", "I", bodySize-1)
	r.pdf.MultiCell(0, lineHeight, r.tr(s), "", "L", false)
	r.updateFont()
}

func headingSize(level int) float64 {
	switch level {
	case 1:
		return 14
	case 2:
		return 12
	case 3:
		return 11
	default:
		return 10
	}
}

func (r *renderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			r.pdf.Ln(4)
			r.pdf.SetFont("Arial", "B", headingSize(node.Level))
		} else {
			r.pdf.Ln(8)
			r.updateFont()
		}

	case *ast.Paragraph:
		if !entering {
			r.pdf.Ln(lineHeight + 2)
		}

	case *ast.Text:
		if entering {
			r.write(string(node.Segment.Value(r.source)))
			if node.SoftLineBreak() {
				r.write(" ")
			}
			if node.HardLineBreak() {
				r.pdf.Ln(lineHeight)
			}
		}

	case *ast.String:
		if entering {
			r.write(string(node.Value))
		}

	case *ast.Emphasis:
		if node.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.updateFont()

	case *ast.CodeSpan:
		if entering {
			r.pdf.SetFont("Courier", "", bodySize)
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					r.write(string(t.Segment.Value(r.source)))
				}
			}
			r.updateFont()
		}
		return ast.WalkSkipChildren, nil

	case *ast.FencedCodeBlock:
		if entering {
			r.codeBlock(node.Lines())
		}
		return ast.WalkSkipChildren, nil

	case *ast.CodeBlock:
		if entering {
			r.codeBlock(node.Lines())
		}
		return ast.WalkSkipChildren, nil

	case *ast.List:
		if entering {
			r.listLevel++
		} else {
			r.listLevel--
			if r.listLevel == 0 {
				r.pdf.Ln(2)
			}
		}

	case *ast.ListItem:
		if entering {
			r.pdf.Ln(lineHeight)
			r.pdf.SetX(10 + float64(r.listLevel)*5)
			r.write("- ")
		}

	case *ast.AutoLink:
		if entering {
			r.write(string(node.Label(r.source)))
		}

	case *ast.Image:
		// figures are drawn from payloads, not from Markdown references
		return ast.WalkSkipChildren, nil

	case *ast.ThematicBreak:
		if entering {
			r.rule()
		}

	case *extast.Table:
		if entering {
			r.table(node)
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (r *renderer) codeBlock(lines *text.Segments) {
	r.pdf.Ln(2)
	r.pdf.SetFont("Courier", "", bodySize)
	r.pdf.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		r.pdf.MultiCell(0, lineHeight, r.tr(string(line.Value(r.source))), "", "L", true)
	}
	r.pdf.SetFillColor(255, 255, 255)
	r.updateFont()
	r.pdf.Ln(2)
}

// table draws equal-width columns; cell text that does not fit is cut with an ellipsis
func (r *renderer) table(n *extast.Table) {
	var rows [][]string
	var collect func(node ast.Node)
	collect = func(node ast.Node) {
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			switch row := child.(type) {
			case *extast.TableHeader:
				rows = append(rows, r.cells(row))
			case *extast.TableRow:
				rows = append(rows, r.cells(row))
			}
		}
	}
	collect(n)
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	width := pageWidth / float64(len(rows[0]))
	r.pdf.Ln(2)
	for i, row := range rows {
		style, fill := "", false
		if i == 0 {
			style, fill = "B", true
			r.pdf.SetFillColor(230, 230, 230)
		}
		r.pdf.SetFont("Arial", style, bodySize-1)
		for _, cell := range row {
			r.pdf.CellFormat(width, lineHeight+1, r.fit(r.tr(cell), width-2), "1", 0, "L", fill, 0, "")
		}
		r.pdf.Ln(-1)
	}
	r.pdf.SetFillColor(255, 255, 255)
	r.updateFont()
	r.pdf.Ln(3)
}

func (r *renderer) cells(row ast.Node) []string {
	var out []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		out = append(out, string(cell.Text(r.source)))
	}
	return out
}

func (r *renderer) fit(s string, width float64) string {
	if r.pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && r.pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}
