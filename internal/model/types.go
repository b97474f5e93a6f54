package model

// Layout of the input tensor.
const (
	LayoutNCHW = "nchw"
	LayoutNHWC = "nhwc"
)

type Metadata struct {
	Name        string   `json:"name"`
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	Layout      string   `json:"layout"`
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
}

// InputSize is the number of float32 values one input tensor holds.
func (m Metadata) InputSize() int {
	if len(m.InputShape) == 0 {
		return 0
	}
	n := 1
	for _, dim := range m.InputShape {
		n *= int(dim)
	}
	return n
}

type Prediction struct {
	Class      string  `json:"class"`
	Confidence float32 `json:"confidence"`
}
