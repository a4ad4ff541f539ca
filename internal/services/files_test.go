package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		suffix   string
	}{
		{name: "simple", filename: "copie.pdf", suffix: "-copie.pdf"},
		{name: "espaces", filename: "ma copie.pdf", suffix: "-ma_copie.pdf"},
		{name: "chemin", filename: "../../etc/passwd", suffix: "-passwd"},
		{name: "chemin windows", filename: `C:\Users\eleve\devoir.docx`, suffix: "-devoir.docx"},
		{name: "vide", filename: "", suffix: "-fichier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := ObjectKey("hw-1", "user-1", tt.filename)
			assert.True(t, strings.HasPrefix(key, "submissions/hw-1/user-1/"), key)
			assert.True(t, strings.HasSuffix(key, tt.suffix), key)
			assert.NotContains(t, strings.TrimPrefix(key, "submissions/hw-1/user-1/"), "/")
		})
	}
	assert.NotEqual(t, ObjectKey("a", "b", "x"), ObjectKey("a", "b", "x"))
}
