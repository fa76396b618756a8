package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsedYear(t *testing.T) {
	tests := []struct {
		name    string
		year    string
		want    int
		wantOK  bool
		wantErr bool
	}{
		{name: "plain", year: "1943", want: 1943, wantOK: true},
		{name: "padded", year: " 1943 ", want: 1943, wantOK: true},
		{name: "blank", year: "", wantOK: false},
		{name: "whitespace", year: "   ", wantOK: false},
		{name: "garbage", year: "circa 1900", wantErr: true},
		{name: "range", year: "1939-1945", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y, ok, err := Record{Year: tt.year}.ParsedYear()
			if tt.wantErr {
				require.Error(t, err)
				var ve *ValidationError
				assert.ErrorAs(t, err, &ve)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, y)
		})
	}
}

func TestGet(t *testing.T) {
	r := Record{ID: 7, Title: "1 Cent", Value: 1, Unit: "Cents", Weight: 3.11}

	assert.Equal(t, int64(7), r.Get(FieldID))
	assert.Equal(t, "1 Cent", r.Get(FieldTitle))
	assert.Equal(t, 1.0, r.Get(FieldValue))
	assert.Equal(t, 3.11, r.Get(FieldWeight))
	assert.Nil(t, r.Get("no_such_field"))
}
