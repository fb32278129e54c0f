package backend

// Report accumulates which named buffers a shape-only computation needed.
// Data touches imply shape touches.
type Report struct {
	dataOrder  []string
	shapeOrder []string
	data       map[string]bool
	shape      map[string]bool
}

func NewReport() *Report {
	return &Report{data: map[string]bool{}, shape: map[string]bool{}}
}

func (r *Report) TouchData(key string) {
	if !r.data[key] {
		r.data[key] = true
		r.dataOrder = append(r.dataOrder, key)
	}
	r.TouchShape(key)
}

func (r *Report) TouchShape(key string) {
	if !r.shape[key] {
		r.shape[key] = true
		r.shapeOrder = append(r.shapeOrder, key)
	}
}

// DataTouched returns touched keys in first-touch order.
func (r *Report) DataTouched() []string {
	return append([]string(nil), r.dataOrder...)
}

// ShapeTouched returns touched keys in first-touch order; includes every
// data-touched key.
func (r *Report) ShapeTouched() []string {
	return append([]string(nil), r.shapeOrder...)
}
