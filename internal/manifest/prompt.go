// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package manifest

import (
	"fmt"
	"strings"
)

// =============================================================================
// PROMPT TEMPLATE
// =============================================================================

const (
	// RoleLine frames the model for the extraction task.
	RoleLine = "You are an export-compliance analyst. Extract facts from the manifest below " +
		"concisely and factually. Do not speculate and do not give advice."

	// ChecklistHeader introduces the extraction checklist.
	ChecklistHeader = "Extract the following fields (write \"not stated\" when absent):"

	// SummaryInstruction asks for the closing summary.
	SummaryInstruction = "Then add a 2-3 sentence summary of the document's purpose."

	// TruncationNotice prefixes the footnote added to truncated manifests.
	TruncationNotice = "[Note: input truncated to the first"
)

// Checklist is the ordered list of fields the model is asked to extract.
var Checklist = []string{
	"Origin country",
	"Destination country",
	"Shipper, consignee and end-user",
	"Items and models",
	"Quantities",
	"Classification codes (ECCN, HTS, Schedule B)",
	"Dates and PO/invoice numbers",
}

// BeginMarker returns the line that opens the manifest body.
func BeginMarker(filename string) string {
	return fmt.Sprintf("----- BEGIN MANIFEST: %s -----", filename)
}

// EndMarker returns the line that closes the manifest body.
func EndMarker(filename string) string {
	return fmt.Sprintf("----- END MANIFEST: %s -----", filename)
}

// BuildPrompt renders the hidden prompt for a manifest. It has no side
// effects: identical arguments always produce identical output.
func BuildPrompt(filename, body string, truncated bool) string {
	return buildPrompt(filename, body, truncated, MaxChars)
}

func buildPrompt(filename, body string, truncated bool, limit int) string {
	var b strings.Builder
	b.WriteString(RoleLine)
	b.WriteString("\n\n")
	b.WriteString(ChecklistHeader)
	b.WriteString("\n")
	for i, item := range Checklist {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	b.WriteString("\n")
	b.WriteString(SummaryInstruction)
	b.WriteString("\n\n")
	b.WriteString(BeginMarker(filename))
	b.WriteString("\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(EndMarker(filename))
	if truncated {
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "%s %d characters for this initial pass.]", TruncationNotice, limit)
	}
	return b.String()
}
