package util

import "errors"

// ErrNoExtractableText marks a PDF with no usable text layer.
var ErrNoExtractableText = errors.New("no extractable text found in PDF")
