// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package canframe

import "encoding/binary"

var order = binary.NativeEndian

// Frame is a classic CAN frame (struct can_frame).
type Frame struct {
	// ID holds the identifier plus the EFF/RTR/ERR flags.
	ID uint32
	// Len is the payload length, 0 to 8.
	Len uint8
	// Len8DLC is the raw DLC 9 to 15 for 8-byte frames, 0 otherwise.
	Len8DLC uint8
	Data    [MaxDLen]byte
}

// Ident returns the identifier without flags.
func (f *Frame) Ident() uint32 { return ident(f.ID) }

// Extended reports whether the frame uses a 29-bit identifier.
func (f *Frame) Extended() bool { return f.ID&EFFFlag != 0 }

// Remote reports whether the frame is a remote transmission request.
func (f *Frame) Remote() bool { return f.ID&RTRFlag != 0 }

// IsError reports whether the frame is an error message frame.
func (f *Frame) IsError() bool { return f.ID&ERRFlag != 0 }

// Payload returns the valid data bytes.
func (f *Frame) Payload() []byte { return f.Data[:min(int(f.Len), MaxDLen)] }

// AppendBinary appends the MTU-byte encoding of f to b.
func (f *Frame) AppendBinary(b []byte) ([]byte, error) {
	if f.Len > MaxDLen || !validLen8DLC(f.Len, f.Len8DLC) {
		return b, ErrInvalidLength
	}
	var raw [MTU]byte
	order.PutUint32(raw[0:4], f.ID)
	raw[4] = f.Len
	raw[7] = f.Len8DLC
	copy(raw[dataOffset:], f.Data[:f.Len])
	return append(b, raw[:]...), nil
}

// MarshalBinary returns the MTU-byte encoding of f.
func (f *Frame) MarshalBinary() ([]byte, error) {
	return f.AppendBinary(make([]byte, 0, MTU))
}

// UnmarshalBinary decodes an MTU-byte classic frame.
func (f *Frame) UnmarshalBinary(b []byte) error {
	if len(b) < MTU {
		return ErrShortBuffer
	}
	if len(b) != MTU || b[4] > MaxDLen || !validLen8DLC(b[4], b[7]) {
		return ErrInvalidLength
	}
	f.ID = order.Uint32(b[0:4])
	f.Len = b[4]
	f.Len8DLC = b[7]
	f.Data = [MaxDLen]byte{}
	copy(f.Data[:], b[dataOffset:dataOffset+int(f.Len)])
	return nil
}

// validLen8DLC reports whether dlc is 0, or a raw DLC above 8 carried by
// an 8-byte frame.
func validLen8DLC(length, dlc uint8) bool {
	if dlc == 0 {
		return true
	}
	return length == MaxDLen && dlc > MaxDLC && dlc <= MaxRawDLC
}

// FDFrame is a CAN FD frame (struct canfd_frame).
type FDFrame struct {
	// ID holds the identifier plus the EFF/RTR/ERR flags.
	ID uint32
	// Len is the payload length, 0 to 64.
	Len uint8
	// Flags holds BRS, ESI and FDF.
	Flags uint8
	Data  [FDMaxDLen]byte
}

// Ident returns the identifier without flags.
func (f *FDFrame) Ident() uint32 { return ident(f.ID) }

// Extended reports whether the frame uses a 29-bit identifier.
func (f *FDFrame) Extended() bool { return f.ID&EFFFlag != 0 }

// Payload returns the valid data bytes.
func (f *FDFrame) Payload() []byte { return f.Data[:min(int(f.Len), FDMaxDLen)] }

// AppendBinary appends the FDMTU-byte encoding of f to b.
func (f *FDFrame) AppendBinary(b []byte) ([]byte, error) {
	if f.Len > FDMaxDLen {
		return b, ErrInvalidLength
	}
	var raw [FDMTU]byte
	order.PutUint32(raw[0:4], f.ID)
	raw[4] = f.Len
	raw[5] = f.Flags
	copy(raw[dataOffset:], f.Data[:f.Len])
	return append(b, raw[:]...), nil
}

// MarshalBinary returns the FDMTU-byte encoding of f.
func (f *FDFrame) MarshalBinary() ([]byte, error) {
	return f.AppendBinary(make([]byte, 0, FDMTU))
}

// UnmarshalBinary decodes an FDMTU-byte CAN FD frame.
func (f *FDFrame) UnmarshalBinary(b []byte) error {
	if len(b) < FDMTU {
		return ErrShortBuffer
	}
	if len(b) != FDMTU || b[4] > FDMaxDLen {
		return ErrInvalidLength
	}
	f.ID = order.Uint32(b[0:4])
	f.Len = b[4]
	f.Flags = b[5]
	f.Data = [FDMaxDLen]byte{}
	copy(f.Data[:], b[dataOffset:dataOffset+int(f.Len)])
	return nil
}

// XLFrame is a CAN XL frame (struct canxl_frame). Unlike CC and FD
// frames it encodes to a variable size: header plus len(Data).
type XLFrame struct {
	// Prio holds the 11-bit priority and optionally the VCID.
	Prio uint32
	// Flags must include XLF.
	Flags uint8
	// SDT is the SDU type.
	SDT uint8
	// AF is the acceptance field.
	AF uint32
	// Data holds 1 to 2048 bytes.
	Data []byte
}

// Priority returns the 11-bit arbitration priority.
func (f *XLFrame) Priority() uint32 { return f.Prio & XLPrioMask }

// VCID returns the virtual CAN network identifier.
func (f *XLFrame) VCID() uint8 { return uint8((f.Prio & XLVCIDMask) >> XLVCIDOffset) }

// AppendBinary appends the encoding of f to b.
func (f *XLFrame) AppendBinary(b []byte) ([]byte, error) {
	if f.Flags&XLF == 0 {
		return b, ErrNotXL
	}
	if len(f.Data) < XLMinDLen || len(f.Data) > XLMaxDLen {
		return b, ErrInvalidLength
	}
	var hdr [XLHdrSize]byte
	order.PutUint32(hdr[0:4], f.Prio)
	hdr[4] = f.Flags
	hdr[5] = f.SDT
	order.PutUint16(hdr[6:8], uint16(len(f.Data)))
	order.PutUint32(hdr[8:12], f.AF)
	b = append(b, hdr[:]...)
	return append(b, f.Data...), nil
}

// MarshalBinary returns the encoding of f.
func (f *XLFrame) MarshalBinary() ([]byte, error) {
	return f.AppendBinary(make([]byte, 0, XLHdrSize+len(f.Data)))
}

// UnmarshalBinary decodes a CAN XL frame. Data is copied; trailing bytes
// beyond the encoded length are ignored.
func (f *XLFrame) UnmarshalBinary(b []byte) error {
	if len(b) < XLHdrSize {
		return ErrShortBuffer
	}
	if b[4]&XLF == 0 {
		return ErrNotXL
	}
	n := int(order.Uint16(b[6:8]))
	if n < XLMinDLen || n > XLMaxDLen {
		return ErrInvalidLength
	}
	if len(b) < XLHdrSize+n {
		return ErrShortBuffer
	}
	f.Prio = order.Uint32(b[0:4])
	f.Flags = b[4]
	f.SDT = b[5]
	f.AF = order.Uint32(b[8:12])
	f.Data = append(f.Data[:0], b[XLHdrSize:XLHdrSize+n]...)
	return nil
}

func ident(id uint32) uint32 {
	if id&EFFFlag != 0 {
		return id & EFFMask
	}
	return id & SFFMask
}
