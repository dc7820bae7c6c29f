package http

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"engdash/internal/core"
	"engdash/internal/export"
)

var (
	ErrInvalidThreshold = errors.New("threshold must be a non-negative number of hours")
	ErrMissingName      = errors.New("missing name parameter")
)

// ParseThreshold reads the threshold query parameter, falling back to def
// when it is absent.
func ParseThreshold(query url.Values, def core.Hours) (core.Hours, error) {
	raw := strings.TrimSpace(query.Get("threshold"))
	if raw == "" {
		return def, nil
	}
	h, err := core.ParseHours(raw)
	if err != nil {
		return def, fmt.Errorf("%w: %q", ErrInvalidThreshold, raw)
	}
	return h, nil
}

// RequireName returns the sanitized name parameter. A name that matches no
// rows is valid and yields an empty drill-down.
func RequireName(query url.Values) (string, error) {
	name := sanitizeInput(query.Get("name"))
	if name == "" {
		return "", ErrMissingName
	}
	return name, nil
}

// ParseExportFile splits "product.xlsx" into its dimension.
func ParseExportFile(file string) (export.Dimension, error) {
	base, ok := strings.CutSuffix(file, ".xlsx")
	if !ok {
		return "", fmt.Errorf("%w %q", export.ErrUnknownDimension, file)
	}
	return export.ParseDimension(base)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}
