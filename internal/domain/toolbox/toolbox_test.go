package toolbox

import (
	"encoding/base64"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveness-playground/internal/testutil"
)

func TestEncodeDecode_Image(t *testing.T) {
	data := testutil.PNG(t, 9, 4)

	enc, err := Encode("face.png", data)
	require.NoError(t, err)
	assert.Equal(t, "image/png", enc.MimeType)
	assert.Equal(t, int64(len(data)), enc.Size)
	assert.Equal(t, 9, enc.Width)
	assert.Equal(t, 4, enc.Height)
	assert.Equal(t, "data:image/png;base64,"+enc.Base64, enc.DataURI)

	dec, err := Decode(enc.DataURI)
	require.NoError(t, err)
	assert.Equal(t, data, dec.Data)
	assert.Equal(t, "png", dec.Extension)
	assert.Equal(t, 9, dec.Width)
}

func TestEncodeDecode_PDF(t *testing.T) {
	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF")

	enc, err := Encode("doc.pdf", pdf)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", enc.MimeType)
	assert.Zero(t, enc.Width)

	dec, err := Decode("data:application/pdf;base64," + enc.Base64)
	require.NoError(t, err)
	assert.Equal(t, "pdf", dec.Extension)
	assert.Equal(t, pdf, dec.Data)
}

func TestEncode_Rejects(t *testing.T) {
	_, err := Encode("empty.png", nil)
	assert.Error(t, err)

	_, err = Encode("notes.txt", []byte("plain text content"))
	assert.Error(t, err)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode("")
	assert.Error(t, err)

	_, err = Decode("###")
	assert.Error(t, err)

	dec, err := Decode(base64.StdEncoding.EncodeToString([]byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, "text/plain", dec.MimeType)
	assert.Equal(t, "bin", dec.Extension)
}

func TestGenerateMACs_Formats(t *testing.T) {
	cases := []struct {
		opts    MACOptions
		pattern string
	}{
		{MACOptions{Count: 5, Separator: ":"}, `^([0-9a-f]{2}:){5}[0-9a-f]{2}$`},
		{MACOptions{Count: 5, Separator: "-", Upper: true}, `^([0-9A-F]{2}-){5}[0-9A-F]{2}$`},
		{MACOptions{Count: 5, Separator: "."}, `^[0-9a-f]{4}\.[0-9a-f]{4}\.[0-9a-f]{4}$`},
		{MACOptions{Count: 5, Separator: ""}, `^[0-9a-f]{12}$`},
	}
	for _, tc := range cases {
		macs, err := GenerateMACs(tc.opts)
		require.NoError(t, err)
		require.Len(t, macs, tc.opts.Count)
		re := regexp.MustCompile(tc.pattern)
		for _, mac := range macs {
			assert.Regexp(t, re, mac)
		}
	}
}

func TestGenerateMACs_Bounds(t *testing.T) {
	_, err := GenerateMACs(MACOptions{Count: 0})
	assert.Error(t, err)
	_, err = GenerateMACs(MACOptions{Count: 101})
	assert.Error(t, err)
	_, err = GenerateMACs(MACOptions{Count: 1, Separator: "/"})
	assert.Error(t, err)

	macs, err := GenerateMACs(MACOptions{Count: 100})
	require.NoError(t, err)
	assert.Len(t, macs, 100)
}

func TestFormatMAC_Bits(t *testing.T) {
	b := []byte{0xff, 0x11, 0x22, 0x33, 0x44, 0x55}

	assert.Equal(t, "fe:11:22:33:44:55", FormatMAC(b, MACOptions{Separator: ":", Local: true}))
	assert.Equal(t, "FC1122334455", FormatMAC(b, MACOptions{Upper: true}))
	assert.Equal(t, "fe11.2233.4455", FormatMAC(b, MACOptions{Separator: ".", Local: true}))
	assert.Equal(t, byte(0xff), b[0])
}
