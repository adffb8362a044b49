package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// FigureKind tags the variant held by a Figure.
type FigureKind string

const (
	// FigureURL is a plain image reference.
	FigureURL FigureKind = "url"
	// FigureDetected is a region detected on a scanned page.
	FigureDetected FigureKind = "detected"
)

// Figure is an image attached to a question: either a bare URL or a detected
// region with a bounding box and detector confidence.
//
// Stored rows may hold either a JSON string or an object; both decode into
// this one shape, and encoding always writes the object form with its kind.
type Figure struct {
	Kind       FigureKind `json:"kind"`
	URL        string     `json:"url"`
	BBox       []float64  `json:"bbox,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`
}

var errEmptyFigureURL = errors.New("figure url is empty")

// URLFigure builds a plain image figure.
func URLFigure(url string) Figure {
	return Figure{Kind: FigureURL, URL: url}
}

// DetectedFigure builds a detected-region figure.
func DetectedFigure(url string, bbox [4]float64, confidence float64) Figure {
	return Figure{Kind: FigureDetected, URL: url, BBox: bbox[:], Confidence: confidence}
}

// UnmarshalJSON accepts "https://..." as well as {"url":..,"bbox":..,"confidence":..}.
func (f *Figure) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var url string
		if err := json.Unmarshal(data, &url); err != nil {
			return err
		}
		if url == "" {
			return errEmptyFigureURL
		}
		*f = URLFigure(url)
		return nil
	}

	type rawFigure Figure
	var raw rawFigure
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.URL == "" {
		return errEmptyFigureURL
	}

	if raw.Kind == "" {
		raw.Kind = FigureURL
		if len(raw.BBox) > 0 {
			raw.Kind = FigureDetected
		}
	}

	switch raw.Kind {
	case FigureURL:
		raw.BBox = nil
		raw.Confidence = 0
	case FigureDetected:
		if len(raw.BBox) != 4 {
			return fmt.Errorf("detected figure bbox must have 4 values, got %d", len(raw.BBox))
		}
	default:
		return fmt.Errorf("unknown figure kind %q", raw.Kind)
	}

	*f = Figure(raw)
	return nil
}
