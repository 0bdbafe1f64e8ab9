package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		values   map[string]string
		want     string
	}{
		{
			name:     "bound and unbound",
			contents: "tz: {%timezone%}\nextra: {%unknown%}\n",
			values:   map[string]string{"timezone": "UTC"},
			want:     "tz: UTC\nextra: \n",
		},
		{
			name:     "placeholder inside a value is kept",
			contents: "bot: {%notifications.slack.botName%}\ntz: {%timezone%}\n",
			values: map[string]string{
				"notifications.slack.botName": "spin {%timezone%} bot",
				"timezone":                    "UTC",
			},
			want: "bot: spin {%timezone%} bot\ntz: UTC\n",
		},
		{
			name:     "repeated key",
			contents: "{%a%}-{%a%}",
			values:   map[string]string{"a": "x"},
			want:     "x-x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, substitute(tt.contents, tt.values))
		})
	}
}
