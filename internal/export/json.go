// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import "encoding/json"

// JSONExporter writes the snapshot as indented JSON with the keys user,
// created_at and messages.
type JSONExporter struct{}

func NewJSONExporter() *JSONExporter { return &JSONExporter{} }

func (e *JSONExporter) FileExtension() string { return ".json" }
func (e *JSONExporter) MimeType() string      { return "application/json" }

func (e *JSONExporter) Export(t *Transcript) ([]byte, error) {
	s, err := t.snapshot()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(s, "", "  ")
}
