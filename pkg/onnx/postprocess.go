package onnx

import (
	"ProctorGuard/pkg/proctor"
	"sort"
)

// Candidate is one decoded prediction in model input pixels.
type Candidate struct {
	Class int
	Score float32
	Box   [4]float32 // x1, y1, x2, y2
}

// LetterboxInfo records how a frame was fitted into the square model input.
type LetterboxInfo struct {
	Scale float32
	PadX  float32
	PadY  float32
}

// Letterbox scales frame to fit size×size, keeping its aspect ratio, pads with
// grey and writes normalised CHW planes into dst.
func Letterbox(frame proctor.Frame, size int, dst []float32) LetterboxInfo {
	scale := float32(size) / float32(frame.Width)
	if s := float32(size) / float32(frame.Height); s < scale {
		scale = s
	}
	newW := int(float32(frame.Width) * scale)
	newH := int(float32(frame.Height) * scale)
	padX := (size - newW) / 2
	padY := (size - newH) / 2

	plane := size * size
	const grey = float32(114) / 255
	for i := 0; i < 3*plane; i++ {
		dst[i] = grey
	}

	for y := 0; y < newH; y++ {
		srcY := int(float32(y) / scale)
		if srcY >= frame.Height {
			srcY = frame.Height - 1
		}
		for x := 0; x < newW; x++ {
			srcX := int(float32(x) / scale)
			if srcX >= frame.Width {
				srcX = frame.Width - 1
			}
			r, g, b := frame.RGBAt(srcX, srcY)
			i := (y+padY)*size + x + padX
			dst[i] = float32(r) / 255
			dst[plane+i] = float32(g) / 255
			dst[2*plane+i] = float32(b) / 255
		}
	}

	return LetterboxInfo{Scale: scale, PadX: float32(padX), PadY: float32(padY)}
}

// Unproject maps a box in model input pixels back to [0,1] frame coordinates.
func (l LetterboxInfo) Unproject(box [4]float32, width, height int) proctor.Box {
	clamp := func(v float32) float64 {
		switch {
		case v < 0:
			return 0
		case v > 1:
			return 1
		default:
			return float64(v)
		}
	}
	return proctor.Box{
		X1: clamp((box[0] - l.PadX) / l.Scale / float32(width)),
		Y1: clamp((box[1] - l.PadY) / l.Scale / float32(height)),
		X2: clamp((box[2] - l.PadX) / l.Scale / float32(width)),
		Y2: clamp((box[3] - l.PadY) / l.Scale / float32(height)),
	}
}

// DecodeOutput reads a YOLOv8 output laid out as [4+classes][anchors]: centre
// x, centre y, width, height, then one score per class.
func DecodeOutput(data []float32, classes, anchors int, threshold float32) []Candidate {
	var out []Candidate
	for a := 0; a < anchors; a++ {
		best, bestScore := -1, threshold
		for c := 0; c < classes; c++ {
			if s := data[(4+c)*anchors+a]; s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 {
			continue
		}
		cx, cy := data[a], data[anchors+a]
		w, h := data[2*anchors+a], data[3*anchors+a]
		out = append(out, Candidate{
			Class: best,
			Score: bestScore,
			Box:   [4]float32{cx - w/2, cy - h/2, cx + w/2, cy + h/2},
		})
	}
	return out
}

// NonMaxSuppression keeps the highest scoring box of every overlapping group
// of the same class. The result is ordered by descending score.
func NonMaxSuppression(candidates []Candidate, iouThreshold float32) []Candidate {
	sorted := append([]Candidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	kept := make([]Candidate, 0, len(sorted))
	for _, c := range sorted {
		suppressed := false
		for _, k := range kept {
			if k.Class == c.Class && IoU(k.Box, c.Box) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, c)
		}
	}
	return kept
}

func IoU(a, b [4]float32) float32 {
	x1, y1 := max(a[0], b[0]), max(a[1], b[1])
	x2, y2 := min(a[2], b[2]), min(a[3], b[3])
	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	inter := (x2 - x1) * (y2 - y1)
	union := (a[2]-a[0])*(a[3]-a[1]) + (b[2]-b[0])*(b[3]-b[1]) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
