package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTopic(t *testing.T) {
	tests := []struct {
		in       string
		category string
		topic    string
	}{
		{"cs.AI", "cs", "AI"},
		{"astro-ph.GA", "astro-ph", "GA"},
		{"diffusion", "all", "diffusion"},
		{"  cs.AI ", "cs", "AI"},
		{"stat.ML.extra", "stat", "ML.extra"},
	}
	for _, tt := range tests {
		sub := ParseTopic(tt.in)
		assert.Equal(t, tt.category, sub.Category, tt.in)
		assert.Equal(t, tt.topic, sub.Topic, tt.in)
	}
}

func TestSubscriptionRoundTrip(t *testing.T) {
	assert.Equal(t, "cs.AI", ParseTopic("cs.AI").String())
	assert.Equal(t, "all.diffusion", ParseTopic("diffusion").String())
}

func TestSubscriptionEqualIgnoresCase(t *testing.T) {
	assert.True(t, Subscription{Category: "cs", Topic: "AI"}.Equal(Subscription{Category: "CS", Topic: "ai"}))
	assert.False(t, Subscription{Category: "cs", Topic: "AI"}.Equal(Subscription{Category: "cs", Topic: "LG"}))
}

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("reader@example.com"))
	assert.False(t, IsEmail("123456789012345678"))
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory("cs"))
	assert.True(t, ValidCategory("all"))
	assert.True(t, ValidCategory("astro-ph"))
	assert.False(t, ValidCategory("bogus"))
	assert.False(t, ValidCategory(""))
}
