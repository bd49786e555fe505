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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/indexit/resource"
)

// Extractor converts one document format into plain text.
type Extractor interface {
	// Extract reads the file at path and returns its textual content.
	Extract(path string) (string, error)

	// Extensions lists the lowercased file extensions this extractor
	// handles, dot included.
	Extensions() []string
}

// Set dispatches extraction by file extension across the built-in
// extractors. Adding a format means adding an Extractor variant to this
// package, not registering into a live Set.
type Set struct {
	extractors map[string]Extractor
	extensions []string
	governor   resource.Governor
	logger     *slog.Logger
}

// Option configures a Set.
type Option func(*Set) error

// WithGovernor sets the memory governor probed around each extraction.
// Default is resource.NopGovernor.
func WithGovernor(governor resource.Governor) Option {
	return func(s *Set) error {
		if governor == nil {
			governor = resource.NopGovernor{}
		}
		s.governor = governor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Set) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSet creates a Set covering every built-in extractor: plain text,
// PDF and DOCX.
func NewSet(opts ...Option) (*Set, error) {
	s := &Set{
		extractors: make(map[string]Extractor),
		governor:   resource.NopGovernor{},
		logger:     slog.Default(),
	}

	for _, extractor := range []Extractor{
		NewPlainText(),
		NewPDF(),
		NewDOCX(),
	} {
		for _, ext := range extractor.Extensions() {
			s.extractors[ext] = extractor
			s.extensions = append(s.extensions, ext)
		}
	}
	slices.Sort(s.extensions)

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.logger = s.logger.With("component", "extractor")
	return s, nil
}

// Extensions returns the sorted list of supported file extensions.
func (s *Set) Extensions() []string {
	return slices.Clone(s.extensions)
}

// Supports reports whether ext (dot included, any case) has an extractor.
func (s *Set) Supports(ext string) bool {
	_, ok := s.extractors[strings.ToLower(ext)]
	return ok
}

// Extract reads the file at path and returns its textual content using the
// extractor for the file's extension. A missing file yields ErrNotFound and
// an unhandled extension yields ErrUnsupportedFormat; both take effect
// before any parsing starts.
func (s *Set) Extract(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	extractor, ok := s.extractors[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s (supported: %s)",
			ErrUnsupportedFormat, ext, strings.Join(s.extensions, ", "))
	}

	s.logger.Debug("extracting document",
		"path", path,
		"format", ext,
		"file_bytes", info.Size())

	if s.governor.Check() == resource.StatusCritical {
		s.governor.Reclaim()
	}

	start := time.Now()
	text, err := extractor.Extract(path)
	if err != nil {
		return "", err
	}

	s.logger.Debug("extracted document",
		"path", path,
		"format", ext,
		"chars", len(text),
		"duration", time.Since(start))

	if s.governor.Check() == resource.StatusCritical {
		s.governor.Reclaim()
	}
	return text, nil
}
