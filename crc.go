package airmon

import "github.com/sigurn/crc8"

// Sensirion CRC-8: polynomial 0x31 (x8 + x5 + x4 + 1), init 0xFF, no reflection.
var sensirionTable = crc8.MakeTable(crc8.Params{
	Poly:   0x31,
	Init:   0xFF,
	RefIn:  false,
	RefOut: false,
	XorOut: 0x00,
	Check:  0xF7,
	Name:   "CRC-8/SENSIRION",
})

// CRC8 computes the checksum Sensirion (and Aosong) parts append to every
// 16-bit word on the wire.
func CRC8(data []byte) byte {
	return crc8.Checksum(data, sensirionTable)
}

// CheckWords verifies a buffer made of [msb, lsb, crc] triplets and returns the
// words without their checksums.
func CheckWords(device string, buf []byte) ([]uint16, error) {
	if len(buf)%3 != 0 {
		return nil, Decodef(device, "frame length %d is not a multiple of 3", len(buf))
	}
	words := make([]uint16, 0, len(buf)/3)
	for i := 0; i < len(buf); i += 3 {
		if crc := CRC8(buf[i : i+2]); crc != buf[i+2] {
			return nil, Decodef(device, "crc mismatch in word %d: expected %#x, got %#x", i/3, buf[i+2], crc)
		}
		words = append(words, uint16(buf[i])<<8|uint16(buf[i+1]))
	}
	return words, nil
}
