package gshade

import "math"

// EncodePickIndex returns the two color channels picking shaders write for
// object index id. The encoding is fixed and must not change since picked
// pixels are decoded with [DecodePickColor]:
//
//	c0 = round((id+1)/256) / 256
//	c1 = ((id+1) - c0*256*256 + 1) / 256
//
// Channels are computed in float64 and rounded once to float32.
func EncodePickIndex(id int) (c0, c1 float32) {
	v := float64(id + 1)
	hi := math.Round(v/256) / 256
	lo := (v - hi*256*256 + 1) / 256
	return float32(hi), float32(lo)
}

// DecodePickColor recovers the object index from the channels read back from
// a picking render target. It returns false for the cleared background (0,0).
func DecodePickColor(c0, c1 float32) (id int, ok bool) {
	if c0 == 0 && c1 == 0 {
		return -1, false
	}
	v := float64(c1)*256 + float64(c0)*256*256 // Equals id+2.
	return int(math.Round(v)) - 2, true
}

// PickColor returns the RGB color for the state's current pick index.
func (s *State) PickColor() [3]float32 {
	c0, c1 := EncodePickIndex(s.pickIndex)
	return [3]float32{c0, c1, 0}
}
