// Package config decodes and validates the sources document: the static
// description of entities (vendors, categories) and their typed sources.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/outagewatch/outagewatch/internal/model"
)

// Source is one typed source with its endpoint URLs.
type Source struct {
	Type model.SourceKind `json:"type"`
	URLs []string         `json:"urls"`
}

// Vendor groups the sources belonging to one vendor entity.
type Vendor struct {
	Vendor  string   `json:"vendor"`
	Sources []Source `json:"sources"`
}

// Category aggregates several vendors' sources under one shared entity
// name and record slot.
type Category struct {
	Name    string   `json:"name"`
	Vendors []Vendor `json:"vendors"`
}

// Document is the decoded sources document.
type Document struct {
	Vendors    []Vendor   `json:"vendors"`
	Categories []Category `json:"categories"`
}

// Parse decodes and validates a sources document. Invalid structure is an
// error at the boundary: a run cannot proceed on a document it cannot
// target entities from. Unknown source types are retained — they become
// observable no-ops downstream.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode sources document: %w", err)
	}

	for i, v := range doc.Vendors {
		if err := validateVendor(v); err != nil {
			return nil, fmt.Errorf("vendors[%d]: %w", i, err)
		}
	}
	for i, c := range doc.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("categories[%d]: empty name", i)
		}
		for j, v := range c.Vendors {
			if err := validateVendor(v); err != nil {
				return nil, fmt.Errorf("categories[%d] (%s) vendors[%d]: %w", i, c.Name, j, err)
			}
		}
	}

	if len(doc.Vendors) == 0 && len(doc.Categories) == 0 {
		return nil, fmt.Errorf("sources document lists no vendors and no categories")
	}

	return &doc, nil
}

func validateVendor(v Vendor) error {
	if strings.TrimSpace(v.Vendor) == "" {
		return fmt.Errorf("empty vendor name")
	}
	for i, s := range v.Sources {
		if s.Type == "" {
			return fmt.Errorf("%s: sources[%d]: empty type", v.Vendor, i)
		}
		if len(s.URLs) == 0 {
			return fmt.Errorf("%s: sources[%d] (%s): no urls", v.Vendor, i, s.Type)
		}
		for _, raw := range s.URLs {
			u, err := url.Parse(raw)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("%s: sources[%d] (%s): invalid url %q", v.Vendor, i, s.Type, raw)
			}
		}
	}
	return nil
}
