// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

const documentBodyPath = "word/document.xml"

// DOCX extracts Word documents as Markdown. Heading styles become
// #-prefixed lines and tables become Markdown tables, so document
// structure stays visible to downstream chunking.
type DOCX struct{}

// NewDOCX creates a DOCX extractor.
func NewDOCX() *DOCX {
	return &DOCX{}
}

// Extensions returns the DOCX extension.
func (*DOCX) Extensions() []string {
	return []string{".docx"}
}

// Extract parses the document body and renders it as Markdown. Body
// paragraphs come first in document order, followed by every table.
func (*DOCX) Extract(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx %s: %w", path, err)
	}
	defer archive.Close()

	for _, file := range archive.File {
		if file.Name != documentBodyPath {
			continue
		}

		body, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open document body of %s: %w", path, err)
		}
		defer body.Close()

		var doc wordDocument
		if err := xml.NewDecoder(body).Decode(&doc); err != nil {
			return "", fmt.Errorf("parse docx %s: %w", path, err)
		}
		return doc.markdown(), nil
	}
	return "", fmt.Errorf("parse docx %s: missing %s", path, documentBodyPath)
}

// wordDocument mirrors the WordprocessingML shapes used for rendering.
// Field paths match by local name, so the w: namespace needs no handling.
type wordDocument struct {
	XMLName    xml.Name        `xml:"document"`
	Paragraphs []wordParagraph `xml:"body>p"`
	Tables     []wordTable     `xml:"body>tbl"`
}

type wordParagraph struct {
	Style wordParagraphStyle `xml:"pPr>pStyle"`
	Runs  []string           `xml:"r>t"`
}

type wordParagraphStyle struct {
	Val string `xml:"val,attr"`
}

type wordTable struct {
	Rows []wordTableRow `xml:"tr"`
}

type wordTableRow struct {
	Cells []wordTableCell `xml:"tc"`
}

type wordTableCell struct {
	Runs []string `xml:"p>r>t"`
}

func (d *wordDocument) markdown() string {
	var lines []string

	for _, paragraph := range d.Paragraphs {
		text := strings.Join(paragraph.Runs, "")
		if strings.TrimSpace(text) == "" {
			continue
		}
		if level := headingLevel(paragraph.Style.Val); level > 0 {
			lines = append(lines, strings.Repeat("#", level)+" "+text)
		} else {
			lines = append(lines, text)
		}
	}

	for i, table := range d.Tables {
		if len(table.Rows) == 0 {
			continue
		}
		lines = append(lines, "", fmt.Sprintf("**Table %d**", i+1), "")

		header := table.Rows[0].cells()
		lines = append(lines, "| "+strings.Join(header, " | ")+" |")
		lines = append(lines, "|"+strings.Repeat("---|", len(header)))

		for _, row := range table.Rows[1:] {
			lines = append(lines, "| "+strings.Join(row.cells(), " | ")+" |")
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

func (r *wordTableRow) cells() []string {
	cells := make([]string, len(r.Cells))
	for i, cell := range r.Cells {
		cells[i] = strings.TrimSpace(strings.Join(cell.Runs, ""))
	}
	return cells
}

// headingLevel parses style values like "Heading1" or "Heading 2" into the
// heading depth. Returns 0 for everything that is not a numbered heading.
func headingLevel(style string) int {
	rest := strings.TrimPrefix(style, "Heading")
	if rest == style {
		return 0
	}
	level, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || level <= 0 {
		return 0
	}
	return level
}
