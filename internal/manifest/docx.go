// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package manifest

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	docxBodyPart = "word/document.xml"
	wordNS       = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
)

// ErrNoDocumentPart is returned when a .docx container has no main document.
var ErrNoDocumentPart = errors.New("docx: missing " + docxBodyPart)

// ExtractDOCX returns paragraph text in document order joined with newlines.
// Table cells are visited in reading order since their paragraphs are part
// of the same stream.
func ExtractDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != docxBodyPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", docxBodyPart, err)
		}
		defer rc.Close()
		paras, err := docxParagraphs(rc)
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", docxBodyPart, err)
		}
		return strings.Join(paras, "\n"), nil
	}
	return "", ErrNoDocumentPart
}

// docxParagraphs walks WordprocessingML and collects the text of each
// top-level w:p. Paragraphs nested inside text boxes are folded into their
// enclosing paragraph.
func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paras  []string
		buf    strings.Builder
		depth  int
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				if depth == 0 {
					buf.Reset()
				}
				depth++
			case "pPr":
				// Tab stop definitions live here; only run content is text.
				if err := dec.Skip(); err != nil {
					return nil, err
				}
			case "t":
				inText = depth > 0
			case "tab":
				if depth > 0 {
					buf.WriteByte('\t')
				}
			case "br", "cr":
				if depth > 0 {
					buf.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				if depth == 0 {
					continue
				}
				depth--
				if depth == 0 {
					paras = append(paras, buf.String())
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		}
	}
	return paras, nil
}
