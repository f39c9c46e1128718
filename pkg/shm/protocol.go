package shm

import (
	"unsafe"
)

// The device driver decodes a 32-bit control word laid out like the
// generic ioctl encoding: function in bits 0-7, the driver magic in
// 8-15, the payload size in 16-29, and the transfer direction in the
// top two bits.
const (
	deviceMagic = 'f'

	fnFree      = 7
	fnFindAlloc = 8

	dirNone = 0
	dirW    = 1
	dirR    = 2
	dirRW   = 3
)

// controlWord packs a driver request word. The payload size field is 14
// bits wide; every payload here fits with room to spare.
func controlWord(function uint8, size uint16, dir uint32) uint32 {
	return uint32(function) | uint32(deviceMagic)<<8 | uint32(size&0x3fff)<<16 | dir<<30
}

// regionDesc is the wire descriptor shared by the find-or-allocate and
// free requests. Field order and alignment mirror the driver's C
// struct; the compiler pads it to 32 bytes.
type regionDesc struct {
	Offset uint64
	Length uint64
	Tag    [MaxDeviceNameLen + 1]byte
}

// findAllocRequest is the find-or-allocate payload. The driver fills
// Offset and sets Existing when the tag matched a live allocation.
type findAllocRequest struct {
	Desc     regionDesc
	Existing int32
}

const (
	regionDescSize = uint16(unsafe.Sizeof(regionDesc{}))
	findAllocSize  = uint16(unsafe.Sizeof(findAllocRequest{}))
)

// Fully packed request words. Find-or-allocate carries the request
// struct both ways. Free only writes a bare descriptor; the driver
// never reads one back through it.
var (
	reqFindAlloc = controlWord(fnFindAlloc, findAllocSize, dirRW)
	reqFree      = controlWord(fnFree, regionDescSize, dirW)
)

// newRegionDesc builds a descriptor, rejecting tags that cannot fit the
// fixed field with their terminator. The check runs before any ioctl.
func newRegionDesc(name string, offset, length uint64) (regionDesc, error) {
	if len(name) > MaxDeviceNameLen {
		return regionDesc{}, &NameTooLongError{Name: name, Limit: MaxDeviceNameLen}
	}
	d := regionDesc{Offset: offset, Length: length}
	copy(d.Tag[:], name)
	return d, nil
}
