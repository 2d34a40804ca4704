package testutils

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsP   = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsRel = "http://schemas.openxmlformats.org/package/2006/relationships"

	slideRelType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
)

// DeckWidth and DeckHeight are the slide size of generated decks, in EMU.
const (
	DeckWidth  = 9144000
	DeckHeight = 6858000
)

// Slide describes one slide of a generated deck.
type Slide struct {
	Background string   // RGB hex, optional
	Shapes     []string // p:spTree children
}

// DeckBytes builds a minimal .pptx package holding slides in order.
func DeckBytes(slides ...Slide) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	var ids, rels strings.Builder
	for i := range slides {
		fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, i+1)
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="%s" Target="slides/slide%d.xml"/>`, i+1, slideRelType, i+1)
	}

	parts := map[string]string{
		"ppt/presentation.xml": fmt.Sprintf(
			`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
				`<p:presentation xmlns:a="%s" xmlns:r="%s" xmlns:p="%s">`+
				`<p:sldIdLst>%s</p:sldIdLst><p:sldSz cx="%d" cy="%d"/></p:presentation>`,
			nsA, nsR, nsP, ids.String(), DeckWidth, DeckHeight),
		"ppt/_rels/presentation.xml.rels": fmt.Sprintf(
			`<?xml version="1.0" encoding="UTF-8" standalone="yes"?><Relationships xmlns="%s">%s</Relationships>`,
			nsRel, rels.String()),
	}
	for i, s := range slides {
		var bg string
		if s.Background != "" {
			bg = fmt.Sprintf(`<p:bg><p:bgPr><a:solidFill><a:srgbClr val="%s"/></a:solidFill></p:bgPr></p:bg>`, s.Background)
		}
		parts[fmt.Sprintf("ppt/slides/slide%d.xml", i+1)] = fmt.Sprintf(
			`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
				`<p:sld xmlns:a="%s" xmlns:r="%s" xmlns:p="%s"><p:cSld>%s<p:spTree>`+
				`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`+
				`%s</p:spTree></p:cSld></p:sld>`,
			nsA, nsR, nsP, bg, strings.Join(s.Shapes, ""))
	}

	for name, content := range parts {
		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(content)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDeck writes a generated deck to name inside dir.
func WriteDeck(t *testing.T, dir, name string, slides ...Slide) string {
	t.Helper()

	data, err := DeckBytes(slides...)
	require.NoError(t, err, "Failed to build deck")
	return WriteFile(t, dir, name, data)
}

// PresetShape returns a p:sp with a preset geometry. Coordinates are EMU.
func PresetShape(id int, name, preset string, x, y, cx, cy int64) string {
	return fmt.Sprintf(
		`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>`+
			`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
			`<a:prstGeom prst="%s"><a:avLst/></a:prstGeom></p:spPr></p:sp>`,
		id, escape(name), x, y, cx, cy, preset)
}

// CustomShape returns a p:sp whose custom geometry is a single a:path of
// size w by h holding commands.
func CustomShape(id int, name string, x, y, cx, cy, w, h int64, commands string) string {
	return fmt.Sprintf(
		`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>`+
			`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
			`<a:custGeom><a:pathLst><a:path w="%d" h="%d">%s</a:path></a:pathLst></a:custGeom></p:spPr></p:sp>`,
		id, escape(name), x, y, cx, cy, w, h, commands)
}

// TextBox returns a p:sp holding only text, such as a layer directive.
func TextBox(id int, text string) string {
	return fmt.Sprintf(
		`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="TextBox %d"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`+
			`<p:spPr/><p:txBody><a:bodyPr/><a:p><a:r><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>`,
		id, id, escape(text))
}

// Group wraps shapes in a p:grpSp mapping child extent (chCX, chCY) at
// the origin onto the frame (x, y, cx, cy).
func Group(id int, x, y, cx, cy, chCX, chCY int64, shapes ...string) string {
	return fmt.Sprintf(
		`<p:grpSp><p:nvGrpSpPr><p:cNvPr id="%d" name="Group %d"/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>`+
			`<p:grpSpPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/>`+
			`<a:chOff x="0" y="0"/><a:chExt cx="%d" cy="%d"/></a:xfrm></p:grpSpPr>%s</p:grpSp>`,
		id, id, x, y, cx, cy, chCX, chCY, strings.Join(shapes, ""))
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
