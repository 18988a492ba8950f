// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sink holds the output collaborators displacements are emitted to.
package sink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/relabs-tech/seismic_analyze/internal/integrate"
)

// Separator names accepted by SeparatorByName.
const (
	SeparatorSpace = "space"
	SeparatorComma = "comma"
)

// ErrUnknownSeparator is returned by SeparatorByName for unrecognised names.
var ErrUnknownSeparator = errors.New("unknown separator")

// SeparatorByName maps a configured separator name to the string it stands
// for. The literal separators " " and "," are accepted as well.
func SeparatorByName(name string) (string, error) {
	switch name {
	case SeparatorSpace, " ":
		return " ", nil
	case SeparatorComma, ",":
		return ",", nil
	}
	return "", fmt.Errorf("%w: %q (want %s or %s)", ErrUnknownSeparator, name, SeparatorSpace, SeparatorComma)
}

// Formatter renders displacements as "index<sep>sx<sep>sy<sep>sz".
type Formatter struct {
	Separator string
}

// FormatFloat renders v with six significant digits, trailing zeros removed.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// Format renders one displacement without a trailing newline.
func (f Formatter) Format(d integrate.Displacement) string {
	var b strings.Builder
	f.append(&b, d)
	return b.String()
}

func (f Formatter) append(b *strings.Builder, d integrate.Displacement) {
	sep := f.Separator
	if sep == "" {
		sep = " "
	}
	b.WriteString(strconv.Itoa(d.Index))
	for _, v := range [...]float64{d.X, d.Y, d.Z} {
		b.WriteString(sep)
		b.WriteString(FormatFloat(v))
	}
}

// Text writes one formatted line per displacement to an io.Writer.
type Text struct {
	f Formatter
	w *bufio.Writer
	b strings.Builder
}

// NewText returns a buffered text sink. Call Flush when the run ends.
func NewText(w io.Writer, f Formatter) *Text {
	return &Text{f: f, w: bufio.NewWriter(w)}
}

// Emit writes d as one line.
func (t *Text) Emit(d integrate.Displacement) error {
	t.b.Reset()
	t.f.append(&t.b, d)
	t.b.WriteByte('\n')
	if _, err := t.w.WriteString(t.b.String()); err != nil {
		return fmt.Errorf("write displacement %d: %w", d.Index, err)
	}
	return nil
}

// Flush writes any buffered lines.
func (t *Text) Flush() error {
	return t.w.Flush()
}
