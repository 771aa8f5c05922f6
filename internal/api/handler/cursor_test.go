package handler

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/notify-pipeline/internal/storage"
)

func TestMessageCursor_RoundTrip(t *testing.T) {
	in := &storage.MessageCursor{
		CreatedAt: time.Date(2025, 3, 1, 9, 30, 0, 123456789, time.UTC),
		ID:        42,
	}

	out, err := DecodeMessageCursor(EncodeMessageCursor(in))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestDecodeMessageCursor(t *testing.T) {
	encode := func(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name    string
		cursor  string
		wantNil bool
		wantErr bool
	}{
		{name: "empty", cursor: "", wantNil: true},
		{name: "not base64", cursor: "***", wantErr: true},
		{name: "missing separator", cursor: encode("12345"), wantErr: true},
		{name: "bad timestamp", cursor: encode("yesterday|1"), wantErr: true},
		{name: "bad id", cursor: encode("12345|one"), wantErr: true},
		{name: "valid", cursor: encode("12345|7")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor, err := DecodeMessageCursor(tt.cursor)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, cursor)
				return
			}
			require.NotNil(t, cursor)
			assert.Equal(t, int64(7), cursor.ID)
			assert.Equal(t, int64(12345), cursor.CreatedAt.UnixNano())
		})
	}
}
