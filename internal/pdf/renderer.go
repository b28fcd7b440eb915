// Package pdf renders a merged AnalysisResult as a formatted,
// hyperlinked study-guide PDF.
package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-pdf/fpdf"

	"videonotes-backend/internal/models"
	"videonotes-backend/internal/transcript"
)

// Format selects the page density.
type Format string

const (
	FormatCompact  Format = "compact"
	FormatSpacious Format = "spacious"
)

type rgb struct {
	R, G, B int
}

// Vibrant palette carried over from the product design.
var (
	titleBG     = rgb{33, 150, 243} // Bright Blue
	titleText   = rgb{255, 255, 255}
	bodyText    = rgb{20, 20, 20}
	linkText    = rgb{0, 102, 255}
	highlightBG = rgb{255, 255, 120}

	sectionColors = map[string]rgb{
		"topic_breakdown":           {255, 87, 34},  // Deep Orange
		"key_vocabulary":            {0, 150, 136},  // Teal
		"formulas_and_principles":   {156, 39, 176}, // Purple
		"teacher_insights":          {63, 81, 181},  // Indigo
		"exam_focus_points":         {255, 193, 7},  // Amber
		"common_mistakes_explained": {244, 67, 54},  // Red
		"key_points":                {76, 175, 80},  // Green
		"short_tricks":              {0, 188, 212},  // Cyan
		"must_remembers":            {233, 30, 99},  // Pink
	}

	defaultSectionColor = rgb{50, 50, 50}
)

var highlightPattern = regexp.MustCompile(`<hl>(.*?)</hl>`)

type Renderer struct {
	fontDir string
}

// NewRenderer creates a renderer. fontDir may hold NotoSans TTFs; when
// absent the core Helvetica font is used instead.
func NewRenderer(fontDir string) *Renderer {
	return &Renderer{fontDir: fontDir}
}

// Render lays the result out as a PDF and returns the bytes. videoID,
// when non-empty, turns item timestamps into clickable deep links of the
// form https://www.youtube.com/watch?v={id}&t={seconds}s.
func (r *Renderer) Render(result models.AnalysisResult, videoID string, format Format) ([]byte, error) {
	d := newDoc(r.fontDir, format)

	title := strings.TrimSpace(result.MainSubject)
	if title == "" {
		title = "Video Notes"
	}
	d.title(title)

	for _, key := range models.SectionKeys {
		items := *result.Section(key)
		if len(items) == 0 {
			continue
		}

		color, ok := sectionColors[key]
		if !ok {
			color = defaultSectionColor
		}
		d.sectionHeading(models.SectionTitle(key), color)

		for _, item := range items {
			if key == "topic_breakdown" {
				d.topicItem(item, videoID)
			} else {
				d.flatItem(item, videoID)
			}
		}
		d.pdf.Ln(d.sectionGap)
	}

	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output failed: %w", err)
	}
	return buf.Bytes(), nil
}

// doc wraps an fpdf page with the layout settings for one render.
type doc struct {
	pdf        *fpdf.Fpdf
	fontName   string
	lineH      float64
	sectionGap float64
}

func newDoc(fontDir string, format Format) *doc {
	p := fpdf.New("P", "mm", "A4", "")
	p.SetAutoPageBreak(true, 15)

	d := &doc{pdf: p, fontName: "Helvetica", lineH: 7, sectionGap: 3}
	if format == FormatSpacious {
		d.lineH = 9
		d.sectionGap = 6
	}

	regular := filepath.Join(fontDir, "NotoSans-Regular.ttf")
	bold := filepath.Join(fontDir, "NotoSans-Bold.ttf")
	if fileExists(regular) && fileExists(bold) {
		p.AddUTF8Font("NotoSans", "", regular)
		p.AddUTF8Font("NotoSans", "B", bold)
		d.fontName = "NotoSans"
	}

	p.AddPage()
	return d
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (d *doc) title(text string) {
	d.pdf.SetFont(d.fontName, "B", 24)
	d.pdf.SetFillColor(titleBG.R, titleBG.G, titleBG.B)
	d.pdf.SetTextColor(titleText.R, titleText.G, titleText.B)
	d.pdf.CellFormat(0, 18, text, "", 1, "C", true, 0, "")
	d.pdf.Ln(10)
}

func (d *doc) sectionHeading(heading string, color rgb) {
	d.pdf.SetFont(d.fontName, "B", 16)
	d.pdf.SetTextColor(color.R, color.G, color.B)
	d.pdf.CellFormat(0, 10, heading, "", 1, "L", false, 0, "")

	d.pdf.SetDrawColor(color.R, color.G, color.B)
	d.pdf.SetLineWidth(0.8)
	x, y := d.pdf.GetX(), d.pdf.GetY()
	d.pdf.Line(x, y, x+190, y)
	d.pdf.Ln(5)

	d.pdf.SetTextColor(bodyText.R, bodyText.G, bodyText.B)
}

// flatItem renders one bullet with optional highlight spans and
// timestamp link.
func (d *doc) flatItem(item models.Item, videoID string) {
	text := strings.TrimSpace(item.Content)
	if text == "" {
		return
	}

	d.writeHighlighted("• "+text, "")
	d.timestampLink(item.Time, videoID)
	d.pdf.Ln(1)
}

// topicItem renders a topic_breakdown entry: bold topic bullet, then
// indented details.
func (d *doc) topicItem(item models.Item, videoID string) {
	topic := strings.TrimSpace(item.Topic)
	if topic == "" {
		topic = strings.TrimSpace(item.Content)
	}
	if topic != "" {
		d.pdf.SetFont(d.fontName, "B", 12)
		d.pdf.MultiCell(0, d.lineH, "• "+topic, "", "L", false)
	}

	leftMargin, _, _, _ := d.pdf.GetMargins()
	for _, det := range item.Details {
		text := strings.TrimSpace(det.Content)
		if text == "" {
			continue
		}
		d.pdf.SetX(leftMargin + 6)
		d.writeHighlighted(text, "")
		d.timestampLink(det.Time, videoID)
		d.pdf.Ln(2)
	}
	d.pdf.Ln(d.sectionGap)
}

// writeHighlighted renders text, drawing <hl>...</hl> spans as filled
// bold cells.
func (d *doc) writeHighlighted(text, style string) {
	d.pdf.SetFont(d.fontName, style, 11)

	spans := highlightPattern.FindAllStringSubmatchIndex(text, -1)
	if len(spans) == 0 {
		d.pdf.SetFillColor(255, 255, 255)
		d.pdf.MultiCell(0, d.lineH, text, "", "L", false)
		d.pdf.Ln(1)
		return
	}

	pos := 0
	for _, span := range spans {
		if span[0] > pos {
			d.pdf.SetFillColor(255, 255, 255)
			d.pdf.MultiCell(0, d.lineH, text[pos:span[0]], "", "L", false)
		}

		word := text[span[2]:span[3]]
		d.pdf.SetFillColor(highlightBG.R, highlightBG.G, highlightBG.B)
		d.pdf.SetFont(d.fontName, "B", 11)
		d.pdf.CellFormat(d.pdf.GetStringWidth(word)+2, d.lineH, word, "", 0, "L", true, 0, "")
		d.pdf.SetFont(d.fontName, style, 11)

		pos = span[1]
	}

	if pos < len(text) {
		d.pdf.SetFillColor(255, 255, 255)
		d.pdf.MultiCell(0, d.lineH, text[pos:], "", "L", false)
	}
	d.pdf.Ln(1)
}

// timestampLink writes a right-aligned clickable timestamp when both a
// time and a video ID are available.
func (d *doc) timestampLink(seconds *int, videoID string) {
	if seconds == nil || videoID == "" {
		return
	}

	link := fmt.Sprintf("https://www.youtube.com/watch?v=%s&t=%ds", videoID, *seconds)
	d.pdf.SetTextColor(linkText.R, linkText.G, linkText.B)
	d.pdf.SetFont(d.fontName, "B", 10)
	d.pdf.CellFormat(0, d.lineH, transcript.FormatTimestamp(*seconds), "", 1, "R", false, 0, link)
	d.pdf.SetTextColor(bodyText.R, bodyText.G, bodyText.B)
}
