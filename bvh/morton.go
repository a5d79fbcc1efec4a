package bvh

// spreadBits spaces the low 32 bits of x apart so a second coordinate
// can be interleaved into the odd positions.
func spreadBits(x uint32) uint64 {
	v := uint64(x)
	v = (v | v<<16) & 0x0000FFFF0000FFFF
	v = (v | v<<8) & 0x00FF00FF00FF00FF
	v = (v | v<<4) & 0x0F0F0F0F0F0F0F0F
	v = (v | v<<2) & 0x3333333333333333
	v = (v | v<<1) & 0x5555555555555555
	return v
}

// mortonEncode interleaves two coordinates into a single Morton code so
// that spatial locality corresponds to numeric locality in a 1D sort.
func mortonEncode(x, y uint32) uint64 {
	return spreadBits(x) | spreadBits(y)<<1
}
