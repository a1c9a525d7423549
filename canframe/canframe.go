// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package canframe encodes and decodes CAN frames in the SocketCAN memory
// layout (struct can_frame, canfd_frame and canxl_frame, host byte
// order), so frames can travel as plain byte messages through ringq
// queues.
//
// Every encoded frame fits into ringq.DefaultMaxPayload; CC and FD
// frames always encode to exactly MTU and FDMTU bytes, XL frames to
// XLHdrSize plus the payload length.
package canframe

import "errors"

// Identifier flags and masks (can_id / prio word).
const (
	EFFFlag uint32 = 0x80000000 // Extended frame format
	RTRFlag uint32 = 0x40000000 // Remote transmission request
	ERRFlag uint32 = 0x20000000 // Error message frame

	SFFMask uint32 = 0x000007FF // Standard frame format ID bits
	EFFMask uint32 = 0x1FFFFFFF // Extended frame format ID bits
	ERRMask uint32 = 0x1FFFFFFF // Error class bits

	SFFIDBits = 11
	EFFIDBits = 29
)

// Payload bounds (ISO 11898-1, ISO 11898-7).
const (
	MaxDLC    = 8
	MaxRawDLC = 15
	MaxDLen   = 8

	FDMaxDLC  = 15
	FDMaxDLen = 64

	XLMinDLC     = 0
	XLMaxDLC     = 2047
	XLMaxDLCMask = 0x07FF
	XLMinDLen    = 1
	XLMaxDLen    = 2048
)

// CAN FD flags.
const (
	BRS uint8 = 0x01 // Bit rate switch
	ESI uint8 = 0x02 // Error state indicator of the transmitter
	FDF uint8 = 0x04 // Marks a CAN FD frame
)

// CAN XL flags and VCID placement.
const (
	XLF uint8 = 0x80 // Mandatory CAN XL frame flag
	SEC uint8 = 0x01 // Simple extended content

	XLPrioMask         = SFFMask
	XLVCIDOffset       = 16
	XLVCIDValMask      = 0xFF
	XLVCIDMask  uint32 = XLVCIDValMask << XLVCIDOffset
)

// Encoded sizes.
const (
	MTU       = 16
	FDMTU     = 72
	XLHdrSize = 12
	XLMinMTU  = XLHdrSize + 64
	XLMaxMTU  = XLHdrSize + XLMaxDLen

	dataOffset = 8 // CC and FD payload offset (8-byte aligned)
)

var (
	// ErrShortBuffer means the input is smaller than the frame it claims
	// to hold.
	ErrShortBuffer = errors.New("canframe: short buffer")

	// ErrInvalidLength means a payload length is out of range for the
	// frame type, or a buffer size matches no frame type.
	ErrInvalidLength = errors.New("canframe: invalid length")

	// ErrNotXL means an XL frame lacks the mandatory XLF flag.
	ErrNotXL = errors.New("canframe: XLF flag not set")
)

// Kind identifies the frame type of an encoded buffer.
type Kind uint8

const (
	KindCC Kind = iota + 1 // Classic CAN
	KindFD                 // CAN FD
	KindXL                 // CAN XL
)

func (k Kind) String() string {
	switch k {
	case KindCC:
		return "CC"
	case KindFD:
		return "FD"
	case KindXL:
		return "XL"
	default:
		return "unknown"
	}
}

// KindOf classifies an encoded frame. XL frames are recognised by the
// XLF flag, CC and FD frames by their fixed sizes.
func KindOf(b []byte) (Kind, error) {
	if len(b) >= XLHdrSize && b[4]&XLF != 0 {
		return KindXL, nil
	}
	switch len(b) {
	case MTU:
		return KindCC, nil
	case FDMTU:
		return KindFD, nil
	default:
		return 0, ErrInvalidLength
	}
}

var dlcToLen = [16]uint8{0, 1, 2, 3, 4, 5, 6, 7, 8, 12, 16, 20, 24, 32, 48, 64}

// DLCToLen maps a CAN FD data length code to a payload length.
func DLCToLen(dlc uint8) uint8 {
	return dlcToLen[dlc&0x0F]
}

// LenToDLC maps a payload length to the smallest CAN FD data length code
// whose length holds it. Lengths above 64 map to 15.
func LenToDLC(n int) uint8 {
	for dlc, l := range dlcToLen {
		if n <= int(l) {
			return uint8(dlc)
		}
	}
	return FDMaxDLC
}
