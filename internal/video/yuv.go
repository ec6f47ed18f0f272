package video

import "image"

// I420Size is the byte size of a w×h I420 frame.
func I420Size(w, h int) int {
	cw, ch := (w+1)/2, (h+1)/2
	return w*h + 2*cw*ch
}

// RGBAToI420 converts img to planar I420 using the BT.601 integer transform.
// Chroma is taken from the top-left pixel of each 2×2 block. buf is reused
// when large enough.
func RGBAToI420(img *image.RGBA, buf []byte) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	size := I420Size(w, h)
	if cap(buf) < size {
		buf = make([]byte, size)
	}
	buf = buf[:size]

	cw := (w + 1) / 2
	yPlane := buf[:w*h]
	uPlane := buf[w*h : w*h+cw*((h+1)/2)]
	vPlane := buf[w*h+cw*((h+1)/2):]

	for y := 0; y < h; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < w; x++ {
			r, g, bl := int32(row[x*4]), int32(row[x*4+1]), int32(row[x*4+2])
			yPlane[y*w+x] = uint8(((66*r + 129*g + 25*bl + 128) >> 8) + 16)
			if y%2 == 0 && x%2 == 0 {
				ci := (y/2)*cw + x/2
				uPlane[ci] = uint8(((-38*r - 74*g + 112*bl + 128) >> 8) + 128)
				vPlane[ci] = uint8(((112*r - 94*g - 18*bl + 128) >> 8) + 128)
			}
		}
	}
	return buf
}
