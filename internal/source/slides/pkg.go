package slides

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/beevik/etree"
)

const presentationPart = "ppt/presentation.xml"

// deck is an opened presentation package.
type deck struct {
	files  map[string]*zip.File
	width  float64  // EMU
	height float64  // EMU
	slides []string // part names in presentation order
}

func openDeck(zr *zip.Reader) (*deck, error) {
	d := &deck{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		d.files[f.Name] = f
	}

	pres, err := d.xml(presentationPart)
	if err != nil {
		return nil, err
	}
	root := pres.Root()

	size := root.SelectElement("sldSz")
	if size == nil {
		return nil, errors.New("presentation has no slide size")
	}
	if d.width, err = finite("slide width", size.SelectAttrValue("cx", "")); err != nil {
		return nil, err
	}
	if d.height, err = finite("slide height", size.SelectAttrValue("cy", "")); err != nil {
		return nil, err
	}

	rels, err := d.relationships(presentationPart)
	if err != nil {
		return nil, err
	}
	list := root.SelectElement("sldIdLst")
	if list == nil {
		return nil, errors.New("presentation has no slides")
	}
	for _, id := range list.SelectElements("sldId") {
		rid := id.SelectAttrValue("r:id", "")
		target, ok := rels[rid]
		if !ok {
			return nil, fmt.Errorf("slide relationship %q not found", rid)
		}
		d.slides = append(d.slides, target)
	}
	if len(d.slides) == 0 {
		return nil, errors.New("presentation has no slides")
	}
	return d, nil
}

// xml reads and parses one part of the package.
func (d *deck) xml(name string) (*etree.Document, error) {
	f, ok := d.files[name]
	if !ok {
		return nil, fmt.Errorf("missing part %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer func() { _ = rc.Close() }()

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(io.LimitReader(rc, maxPartSize)); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("part %s is empty", name)
	}
	return doc, nil
}

// maxPartSize bounds how much of a single part is read.
const maxPartSize = 256 << 20

// relationships maps relationship ids of a part to resolved part names.
func (d *deck) relationships(part string) (map[string]string, error) {
	dir, file := path.Split(part)
	relsName := path.Join(dir, "_rels", file+".rels")
	doc, err := d.xml(relsName)
	if err != nil {
		return nil, err
	}
	rels := map[string]string{}
	for _, r := range doc.Root().SelectElements("Relationship") {
		if r.SelectAttrValue("TargetMode", "") == "External" {
			continue
		}
		target := r.SelectAttrValue("Target", "")
		if strings.HasPrefix(target, "/") {
			target = strings.TrimPrefix(target, "/")
		} else {
			target = path.Join(dir, target)
		}
		rels[r.SelectAttrValue("Id", "")] = target
	}
	return rels, nil
}
