package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/sling/internal/core/domain"
)

func TestExpandTemplate(t *testing.T) {
	const hash = "0123456789abcdef"

	tests := []struct {
		template string
		want     string
	}{
		{"js/[name].[contenthash:8].js", "js/main.01234567.js"},
		{"js/[name].[contenthash].js", "js/main.0123456789abcdef.js"},
		{"images/[name].[hash:8][ext]", "images/main.01234567.png"},
		{"js/[name].js", "js/main.js"},
		{"[name].[hash:64][ext]", "main.0123456789abcdef.png"},
		{"[name].[query]", "main.[query]"},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ExpandTemplate(tt.template, "main", ".png", hash))
		})
	}
}

func TestTemplateHasHash(t *testing.T) {
	assert.True(t, domain.TemplateHasHash("js/[name].[contenthash:8].js"))
	assert.True(t, domain.TemplateHasHash("[hash][ext]"))
	assert.False(t, domain.TemplateHasHash("js/[name].js"))
}

func TestTemplateHasName(t *testing.T) {
	assert.True(t, domain.TemplateHasName("js/[name].[contenthash:8].js"))
	assert.False(t, domain.TemplateHasName("js/[contenthash].js"))
}
