package utils

import "github.com/gabriel-vasile/mimetype"

// IsMIMETypeInHierarchy recursively checks if the MIME type and its parents match the expected MIME type
func IsMIMETypeInHierarchy(m *mimetype.MIME, expectedMIME string) bool {
	if m.Is(expectedMIME) {
		return true
	}

	parent := m.Parent()
	if parent == nil {
		return false
	}

	return IsMIMETypeInHierarchy(parent, expectedMIME)
}

// IsPDF sniffs the payload and reports whether it is a PDF document.
func IsPDF(data []byte) bool {
	return IsMIMETypeInHierarchy(mimetype.Detect(data), "application/pdf")
}
