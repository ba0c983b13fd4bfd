package filetype_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/takuyakubo/knowledge-system/internal/filetype"
)

func TestDetectMIME(t *testing.T) {
	cases := []struct {
		name string
		head []byte
		want string
	}{
		{"png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0}, "image/png"},
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}, "image/jpeg"},
		{"gif87a", []byte("GIF87a......"), "image/gif"},
		{"gif89a", []byte("GIF89a......"), "image/gif"},
		{"webp", []byte("RIFF\x10\x00\x00\x00WEBPVP8 "), "image/webp"},
		{"pdf", []byte("%PDF-1.7\n%...."), "application/pdf"},
		{"svg plain", []byte(`<svg xmlns="http://www.w3.org/2000/svg">`), "image/svg+xml"},
		{"svg xml declaration", []byte("\n  <?xml version=\"1.0\"?><svg>"), "image/svg+xml"},
		{"markdown", []byte("# Reading notes\n\nSome text."), ""},
		{"riff but not webp", []byte("RIFF\x10\x00\x00\x00WAVEfmt "), ""},
		{"empty", nil, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, filetype.DetectMIME(tc.head))
		})
	}
}

func TestMIMEForExtension(t *testing.T) {
	require.Equal(t, "application/pdf", filetype.MIMEForExtension(".pdf"))
	require.Equal(t, "text/markdown", filetype.MIMEForExtension(".md"))
	require.Equal(t, "image/jpeg", filetype.MIMEForExtension(".jpg"))
	require.Equal(t, "image/jpeg", filetype.MIMEForExtension(".jpeg"))
	require.Equal(t, "", filetype.MIMEForExtension(".exe"))
}
