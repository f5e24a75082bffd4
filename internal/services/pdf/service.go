package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/models"
	"github.com/ternarybob/quarry/internal/services/transcript"
)

const (
	pageWidth   = 190.0 // A4 width minus margins
	figureWidth = 120.0 // widest a figure is drawn
)

// Document is a generated PDF
type Document struct {
	Data  []byte
	Pages int
}

// Service exports transcripts as PDF documents with figures drawn inline
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new PDF service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// RenderTranscript renders every entry's Markdown followed by its figures
func (s *Service) RenderTranscript(t *transcript.Transcript) (*Document, error) {
	pdf := newDocument(t.Query)
	r := newRenderer(pdf)

	if t.Query != "" {
		r.heading(1, t.Query)
	}
	for i, entry := range t.Entries {
		if i > 0 {
			r.rule()
		}
		r.markdown(entry.Content)
		for _, figure := range entry.Figures {
			s.drawFigure(pdf, r, figure)
		}
	}
	if t.Error != "" && !hasErrorEntry(t) {
		r.markdown("**Error:** " + t.Error)
	}

	return s.finish(pdf)
}

// ConvertMarkdownToPDF renders a single Markdown document
func (s *Service) ConvertMarkdownToPDF(markdown, title string) (*Document, error) {
	pdf := newDocument(title)
	newRenderer(pdf).markdown(markdown)
	return s.finish(pdf)
}

func newDocument(title string) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	if title != "" {
		pdf.SetTitle(title, true)
	}
	pdf.SetCreator("Quarry", true)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 9)
	return pdf
}

func (s *Service) drawFigure(pdf *fpdf.Fpdf, r *renderer, figure models.FigurePayload) {
	imageType := imageTypes[figure.MimeType]
	if imageType == "" {
		s.logger.Debug().Str("mime_type", figure.MimeType).Str("figure", figure.FigureID).Msg("Figure type not drawable")
		r.caption(figure.Name() + " (not shown)")
		return
	}

	name := figure.PassageID + "/" + figure.FigureID
	options := fpdf.ImageOptions{ImageType: imageType, ReadDpi: true}
	info := pdf.RegisterImageOptionsReader(name, options, bytes.NewReader(figure.Data))
	if !pdf.Ok() || info == nil {
		s.logger.Warn().Err(pdf.Error()).Str("figure", figure.FigureID).Msg("Failed to decode figure")
		pdf.ClearError()
		r.caption(figure.Name() + " (unreadable)")
		return
	}

	width := info.Width()
	if width > figureWidth {
		width = figureWidth
	}
	pdf.Ln(3)
	pdf.ImageOptions(name, pdf.GetX(), pdf.GetY(), width, 0, true, options, 0, "")

	label := figure.Name()
	if figure.Description != "" {
		label += ": " + figure.Description
	}
	r.caption(label)
}

var imageTypes = map[string]string{
	"image/png":  "PNG",
	"image/jpeg": "JPG",
	"image/gif":  "GIF",
}

func hasErrorEntry(t *transcript.Transcript) bool {
	for _, entry := range t.Entries {
		if strings.Contains(entry.Content, t.Error) {
			return true
		}
	}
	return false
}

// finish writes the document and reads it back to count pages
func (s *Service) finish(pdf *fpdf.Fpdf) (*Document, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate PDF output")
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}

	pages, err := api.PageCount(bytes.NewReader(buf.Bytes()), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("generated PDF is unreadable: %w", err)
	}
	if pages == 0 {
		return nil, fmt.Errorf("generated PDF has no pages")
	}

	s.logger.Debug().
		Int("pdf_size", buf.Len()).
		Int("pages", pages).
		Msg("PDF generated")

	return &Document{Data: buf.Bytes(), Pages: pages}, nil
}
