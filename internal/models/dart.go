package models

// Segment values that are not one of the 1..20 wedges.
const (
	SegmentMiss      = 0
	SegmentOuterBull = 25
	SegmentInnerBull = 50
)

// Dart is one resolved throw. A Multiplier of 0 encodes a miss.
type Dart struct {
	Segment    int `json:"segment"`
	Multiplier int `json:"multiplier"`
}

// Miss is the zero-contribution outcome.
var Miss = Dart{Segment: SegmentMiss, Multiplier: 0}

// Points is the scoring contribution of the dart.
func (d Dart) Points() int {
	return d.Segment * d.Multiplier
}

// IsMiss reports whether the dart scored nothing.
func (d Dart) IsMiss() bool {
	return d.Multiplier == 0 || d.Segment == SegmentMiss
}
