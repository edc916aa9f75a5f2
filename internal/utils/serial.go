package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Serial number format: {PREFIX}-{PRODUCT_CODE}-{SEQ}
// SEQ is zero-padded to at least 5 digits and keeps growing past 99999.
// Example: SV-PROD1-00001

const serialSeqWidth = 5

// SerialNumber is the decoded form of a unit serial
type SerialNumber struct {
	Prefix      string
	ProductCode string
	Sequence    int
}

// FormatSerial builds the canonical serial string for a product code and
// sequence. Sequence numbers start at 1.
func FormatSerial(prefix, productCode string, sequence int) (string, error) {
	if sequence < 1 {
		return "", fmt.Errorf("serial sequence must be >= 1, got %d", sequence)
	}
	if prefix == "" || productCode == "" {
		return "", errors.New("serial prefix and product code must not be empty")
	}
	return fmt.Sprintf("%s-%s-%0*d",
		strings.ToUpper(prefix),
		strings.ToUpper(productCode),
		serialSeqWidth, sequence,
	), nil
}

// ParseSerial decodes a serial string back into its parts. Product codes may
// themselves contain hyphens; the prefix and the trailing sequence may not.
func ParseSerial(serial string) (*SerialNumber, error) {
	parts := strings.Split(serial, "-")
	if len(parts) < 3 {
		return nil, fmt.Errorf("invalid serial %q", serial)
	}

	seqPart := parts[len(parts)-1]
	seq, err := strconv.Atoi(seqPart)
	if err != nil || seq < 1 {
		return nil, fmt.Errorf("invalid serial sequence %q", seqPart)
	}

	return &SerialNumber{
		Prefix:      parts[0],
		ProductCode: strings.Join(parts[1:len(parts)-1], "-"),
		Sequence:    seq,
	}, nil
}
