package partition

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"docrag/internal/domain"
)

// SlideParser extracts slide text from PPTX archives. Text in title
// placeholders becomes Title elements, tables become Table elements and all
// other paragraphs NarrativeText. page_number is the slide number.
type SlideParser struct{}

func NewSlideParser() *SlideParser {
	return &SlideParser{}
}

var slideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

type slideFile struct {
	num  int
	file *zip.File
}

func (p *SlideParser) Partition(ctx context.Context, path string) ([]domain.Element, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pptx: %w", err)
	}
	defer reader.Close()

	var slides []slideFile
	for _, f := range reader.File {
		m := slideName.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		slides = append(slides, slideFile{num: num, file: f})
	}
	if len(slides) == 0 {
		return nil, errors.New("pptx contains no slides")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var elements []domain.Element
	for _, s := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rc, err := s.file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open slide %d: %w", s.num, err)
		}
		slideElements, err := parseSlideXML(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse slide %d: %w", s.num, err)
		}
		for i := range slideElements {
			slideElements[i].Metadata = map[string]any{domain.MetaPageNumber: s.num}
		}
		elements = append(elements, slideElements...)
	}

	return annotate(path, KindSlides, elements), nil
}

// slideState tracks the shape, table and paragraph being decoded.
type slideState struct {
	inShape bool
	isTitle bool
	paras   []string

	inTable bool
	rows    []string
	cells   []string
	cell    strings.Builder

	inPara bool
	para   strings.Builder
	inText bool
}

func parseSlideXML(r io.Reader) ([]domain.Element, error) {
	dec := xml.NewDecoder(r)
	var st slideState
	var out []domain.Element

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp":
				st.inShape, st.isTitle, st.paras = true, false, nil
			case "ph":
				if st.inShape {
					for _, a := range t.Attr {
						if a.Name.Local == "type" && (a.Value == "title" || a.Value == "ctrTitle") {
							st.isTitle = true
						}
					}
				}
			case "tbl":
				st.inTable, st.rows = true, nil
			case "tr":
				st.cells = nil
			case "tc":
				st.cell.Reset()
			case "p":
				st.inPara = true
				st.para.Reset()
			case "t":
				st.inText = true
			case "br":
				if st.inPara {
					st.para.WriteByte(' ')
				}
			}
		case xml.CharData:
			if st.inPara && st.inText {
				st.para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				st.inText = false
			case "p":
				st.inPara = false
				text := normalizeSpace(st.para.String())
				if text == "" {
					continue
				}
				switch {
				case st.inTable:
					if st.cell.Len() > 0 {
						st.cell.WriteByte(' ')
					}
					st.cell.WriteString(text)
				case st.inShape:
					st.paras = append(st.paras, text)
				}
			case "tc":
				if c := strings.TrimSpace(st.cell.String()); c != "" {
					st.cells = append(st.cells, c)
				}
			case "tr":
				if len(st.cells) > 0 {
					st.rows = append(st.rows, strings.Join(st.cells, " "))
				}
			case "tbl":
				st.inTable = false
				if len(st.rows) > 0 {
					out = append(out, domain.Element{Text: strings.Join(st.rows, "\n"), Type: domain.ElementTable})
				}
			case "sp":
				typ := domain.ElementNarrativeText
				if st.isTitle {
					typ = domain.ElementTitle
				}
				for _, p := range st.paras {
					out = append(out, domain.Element{Text: p, Type: typ})
				}
				st.inShape = false
			}
		}
	}
}
