// Package report renders resolver results as plain lines, markdown or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"fspatch/internal/resolve"
)

// Source identifies the analysed image.
type Source struct {
	Path   string
	Digest string
	Size   int
}

// Document is the serialisable form of one resolution.
type Document struct {
	Path     string    `json:"path"`
	Digest   string    `json:"digest"`
	Size     int       `json:"size"`
	Resolved bool      `json:"resolved"`
	Passes   int       `json:"passes"`
	Variants []Variant `json:"variants"`
}

// Variant is the report of one heuristic.
type Variant struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Status       string   `json:"status"`
	Offset       string   `json:"offset,omitempty"`
	Candidates   []string `json:"candidates"`
	Details      []string `json:"details,omitempty"`
	Error        string   `json:"error,omitempty"`
	DetailsError string   `json:"details_error,omitempty"`
}

// Build converts a resolver result.
func Build(src Source, res *resolve.Result) Document {
	doc := Document{
		Path:     src.Path,
		Digest:   src.Digest,
		Size:     src.Size,
		Resolved: res.Resolved(),
		Passes:   res.Passes,
		Variants: make([]Variant, 0, len(res.Outcomes)),
	}

	for _, o := range res.Outcomes {
		v := Variant{
			Name:        o.Name,
			Description: o.Description,
			Status:      o.Status(),
			Candidates:  make([]string, 0, len(o.Candidates)),
		}
		for _, c := range o.Candidates {
			v.Candidates = append(v.Candidates, Hex(c))
		}
		if o.Err != nil {
			v.Error = o.Err.Error()
		} else {
			v.Offset = Hex(o.Offset)
		}
		if o.Details != "" {
			v.Details = strings.Split(o.Details, "\n")
		}
		if o.DetailsErr != nil {
			v.DetailsError = o.DetailsErr.Error()
		}
		doc.Variants = append(doc.Variants, v)
	}
	return doc
}

// Hex formats an offset the way every report shows it.
func Hex(off int) string {
	return fmt.Sprintf("0x%x", off)
}

// JSON returns the indented JSON encoding.
func (d Document) JSON() ([]byte, error) {
	bts, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return bts, nil
}

// Lines returns one "name offset" line per variant. Unresolved variants
// show their status instead of an offset.
func (d Document) Lines() string {
	var sb strings.Builder
	for _, v := range d.Variants {
		value := v.Offset
		if value == "" {
			value = v.Status
		}
		fmt.Fprintf(&sb, "%s %s\n", v.Name, value)
	}
	return sb.String()
}

// Markdown renders the summary table and, with full set, the decoded
// region of every resolved variant.
func (d Document) Markdown(full bool) string {
	var sb strings.Builder

	sb.WriteString("# fspatch\n\n```\n")
	if dir := filepath.Dir(d.Path); dir != "." {
		fmt.Fprintf(&sb, "; %s/\n", dir)
	}
	fmt.Fprintf(&sb, "; %s (%s bytes)\n", filepath.Base(d.Path), Hex(d.Size))
	if d.Digest != "" {
		fmt.Fprintf(&sb, "; %s\n", d.Digest)
	}
	sb.WriteString("```\n\n")

	sb.WriteString("## Offsets\n\n")
	sb.WriteString("| Variant | Status | Offset | Candidates |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, v := range d.Variants {
		offset := v.Offset
		if offset == "" {
			offset = "-"
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", v.Name, v.Status, offset, candidateList(v.Candidates))
	}

	var problems []string
	for _, v := range d.Variants {
		if v.Error != "" {
			problems = append(problems, fmt.Sprintf("- `%s`", v.Error))
		}
	}
	if len(problems) > 0 {
		sb.WriteString("\n## Unresolved\n\n")
		sb.WriteString(strings.Join(problems, "\n"))
		sb.WriteString("\n")
	}

	if !full {
		return sb.String()
	}

	for _, v := range d.Variants {
		if v.Offset == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n## %s\n\n", v.Name)
		if v.Description != "" {
			fmt.Fprintf(&sb, "%s\n\n", v.Description)
		}
		if v.DetailsError != "" {
			fmt.Fprintf(&sb, "Decoding failed: `%s`\n", v.DetailsError)
			continue
		}
		if len(v.Details) == 0 {
			continue
		}
		sb.WriteString("```asm\n")
		sb.WriteString(strings.Join(v.Details, "\n"))
		sb.WriteString("\n```\n")
	}
	return sb.String()
}

// candidateList keeps large candidate sets readable in a table cell.
func candidateList(cs []string) string {
	const max = 4
	switch {
	case len(cs) == 0:
		return "-"
	case len(cs) <= max:
		return strings.Join(cs, ", ")
	default:
		return fmt.Sprintf("%s, ... (%d)", strings.Join(cs[:max], ", "), len(cs))
	}
}
