package toolbox

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"liveness-playground/internal/platform/errors"
)

const (
	MaxMACCount = 100

	SeparatorColon = ":"
	SeparatorDash  = "-"
	// SeparatorDot groups the address in three blocks of four digits.
	SeparatorDot  = "."
	SeparatorNone = ""
)

// MACOptions controls MAC address generation.
type MACOptions struct {
	Count     int
	Separator string
	Upper     bool
	// Local sets the locally-administered bit. Generated addresses are
	// always unicast.
	Local bool
}

// GenerateMACs returns opts.Count random MAC addresses.
func GenerateMACs(opts MACOptions) ([]string, error) {
	const op = "toolbox.mac"

	if opts.Count < 1 || opts.Count > MaxMACCount {
		return nil, errors.Newf(errors.KindValidation, op, "count must be between 1 and %d", MaxMACCount)
	}
	switch opts.Separator {
	case SeparatorColon, SeparatorDash, SeparatorDot, SeparatorNone:
	default:
		return nil, errors.Newf(errors.KindValidation, op, "unsupported separator %q", opts.Separator)
	}

	raw := make([]byte, 6*opts.Count)
	if _, err := rand.Read(raw); err != nil {
		return nil, errors.Wrap(errors.KindUnknown, op, "read random bytes", err)
	}

	out := make([]string, opts.Count)
	for i := range out {
		out[i] = FormatMAC(raw[i*6:i*6+6], opts)
	}
	return out, nil
}

// FormatMAC renders six bytes with the multicast bit cleared and the
// locally-administered bit set as requested.
func FormatMAC(b []byte, opts MACOptions) string {
	addr := make([]byte, 6)
	copy(addr, b)
	addr[0] &^= 0x01
	if opts.Local {
		addr[0] |= 0x02
	} else {
		addr[0] &^= 0x02
	}

	digits := hex.EncodeToString(addr)
	if opts.Upper {
		digits = strings.ToUpper(digits)
	}

	group := 2
	if opts.Separator == SeparatorDot {
		group = 4
	}
	parts := make([]string, 0, len(digits)/group)
	for i := 0; i < len(digits); i += group {
		parts = append(parts, digits[i:i+group])
	}
	return strings.Join(parts, opts.Separator)
}
