package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveMimeType(t *testing.T) {
	tests := []struct {
		name     string
		doc      Document
		expected string
	}{
		{
			name:     "stored type kept",
			doc:      Document{OriginalName: "photo.png", MimeType: "image/png"},
			expected: "image/png",
		},
		{
			name:     "pdf extension overrides wrong stored type",
			doc:      Document{OriginalName: "Transcript.PDF", MimeType: "application/octet-stream"},
			expected: "application/pdf",
		},
		{
			name:     "empty type falls back to octet-stream",
			doc:      Document{OriginalName: "data.bin"},
			expected: "application/octet-stream",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.doc.EffectiveMimeType())
		})
	}
}

func TestIsBrowserViewable(t *testing.T) {
	assert.True(t, (&Document{OriginalName: "a.pdf", MimeType: "application/pdf"}).IsBrowserViewable())
	assert.True(t, (&Document{OriginalName: "a.png", MimeType: "image/png"}).IsBrowserViewable())
	assert.False(t, (&Document{OriginalName: "a.zip", MimeType: "application/zip"}).IsBrowserViewable())
}
