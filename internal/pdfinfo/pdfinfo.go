// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdfinfo inspects PDF renditions returned by Graph.
package pdfinfo

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrNotPDF means the data does not start with a PDF header.
var ErrNotPDF = errors.New("not a PDF document")

func init() {
	// Keep pdfcpu from creating a config directory under the user's home.
	api.DisableConfigDir()
}

// PageCount returns the number of pages in data. Validation is relaxed
// since renditions from Office Online are not always strictly conformant.
// A parser panic is reported as an error.
func PageCount(data []byte) (n int, err error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return 0, ErrNotPDF
	}

	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("reading PDF: %v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err = api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("reading PDF: %w", err)
	}
	return n, nil
}
