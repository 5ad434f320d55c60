package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNaturalLess(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected bool
	}{
		{name: "numbers by value", a: "page2", b: "page10", expected: true},
		{name: "numbers by value reversed", a: "page10", b: "page2", expected: false},
		{name: "plain text", a: "alpha", b: "beta", expected: true},
		{name: "prefix first", a: "ch", b: "ch1", expected: true},
		{name: "leading zeros tie break", a: "p01", b: "p001", expected: true},
		{name: "equal", a: "p1", b: "p1", expected: false},
		{name: "nested numbers", a: "v1/p9.jpg", b: "v1/p10.jpg", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NaturalLess(tt.a, tt.b))
		})
	}
}

func TestSortNatural(t *testing.T) {
	ids := []string{"img10.png", "img2.png", "cover", "img1.png", "img100.png"}
	SortNatural(ids)
	assert.Equal(t, []string{"cover", "img1.png", "img2.png", "img10.png", "img100.png"}, ids)
}
