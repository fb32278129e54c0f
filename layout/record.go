package layout

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/shape"
)

// Record holds one array per field, all sharing the row dimension. A nil
// fields slice makes it a tuple, addressed by stringified position.
// Field arrays may be longer than the record; rows past the record's
// length are simply never read.
type Record struct {
	bk       backend.Backend
	contents []Content
	fields   []string
	length   shape.Length
	params   Parameters
	mn, mx   int
}

// NewRecord infers the backend from the first field. A record with no
// fields needs NewRecordIn and an explicit length, since nothing else
// determines either.
func NewRecord(contents []Content, fields []string, length shape.Length, params Parameters) (*Record, error) {
	if len(contents) == 0 {
		return nil, fmt.Errorf("%w: RecordArray of no fields needs an explicit backend and length", ErrInvalid)
	}
	return NewRecordIn(contents[0].Backend(), contents, fields, length, params)
}

// NewRecordIn builds a record on an explicit backend. An unknown length
// means "infer": the minimum of the known field lengths.
func NewRecordIn(bk backend.Backend, contents []Content, fields []string, length shape.Length, params Parameters) (*Record, error) {
	if fields != nil && len(fields) != len(contents) {
		return nil, fmt.Errorf("%w: RecordArray has %d fields but %d contents", ErrInvalid, len(fields), len(contents))
	}
	if _, known := length.Known(); !known {
		inferred := shape.Unknown()
		for _, c := range contents {
			if n, ok := c.Length().Known(); ok {
				if b, bok := inferred.Known(); !bok || n < b {
					inferred = shape.Of(n)
				}
			}
		}
		if _, ok := inferred.Known(); !ok && len(contents) == 0 {
			return nil, fmt.Errorf("%w: RecordArray of no fields needs an explicit length", ErrInvalid)
		}
		length = inferred
	}
	if n, known := length.Known(); known {
		for i, c := range contents {
			if cn, ok := c.Length().Known(); ok && cn < n {
				return nil, fmt.Errorf("%w: RecordArray length %d exceeds field %q length %d",
					ErrInvalid, n, fieldNameOf(fields, i), cn)
			}
		}
	}
	mn, mx := MaxDepth, 1
	for _, c := range contents {
		cmn, cmx, err := childDepth(c)
		if err != nil {
			return nil, err
		}
		if cmn < mn {
			mn = cmn
		}
		if cmx > mx {
			mx = cmx
		}
	}
	if len(contents) == 0 {
		mn, mx = 1, 1
	}
	return &Record{
		bk:       bk,
		contents: contents,
		fields:   fields,
		length:   length,
		params:   params,
		mn:       mn,
		mx:       mx,
	}, nil
}

func fieldNameOf(fields []string, i int) string {
	if fields == nil {
		return strconv.Itoa(i)
	}
	return fields[i]
}

func (*Record) contentNode() {}

func (r *Record) Backend() backend.Backend { return r.bk }
func (r *Record) Length() shape.Length     { return r.length }
func (r *Record) Parameters() Parameters   { return r.params }

func (r *Record) IsTuple() bool       { return r.fields == nil }
func (r *Record) NumFields() int      { return len(r.contents) }
func (r *Record) Contents() []Content { return r.contents }

// Fields stringifies positions for tuples so every record can be
// addressed by name.
func (r *Record) Fields() []string {
	if r.fields != nil {
		return r.fields
	}
	out := make([]string, len(r.contents))
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

func (r *Record) WithParameters(params Parameters) Content {
	out := *r
	out.params = params
	return &out
}

func (r *Record) Form() form.Form {
	contents := make([]form.Form, len(r.contents))
	for i, c := range r.contents {
		contents[i] = c.Form()
	}
	return &form.RecordForm{Fields: r.fields, Contents: contents, Params: r.params}
}

func (r *Record) minmaxDepth() (int, int) { return r.mn, r.mx }

func (r *Record) fieldIndex(name string) (int, error) {
	if r.fields != nil {
		for i, f := range r.fields {
			if f == name {
				return i, nil
			}
		}
	}
	if i, err := strconv.Atoi(name); err == nil && i >= 0 && i < len(r.contents) {
		return i, nil
	}
	return 0, fmt.Errorf("%w: no field %q in record with fields %v", ErrStructuralType, name, r.Fields())
}

func (r *Record) GetItemAt(at int64) (any, error) {
	if n, known := r.length.Known(); known {
		var err error
		if at, err = normAt(at, n, "RecordArray"); err != nil {
			return nil, err
		}
	} else if at < 0 {
		return nil, fmt.Errorf("%w: position %d with unknown length", ErrIncompatibleMode, at)
	}
	return &RecordRow{arr: r, at: at}, nil
}

func (r *Record) GetItemRange(start, stop int64) (Content, error) {
	n, known := r.length.Known()
	if !known {
		r.TouchShape(false)
		return r, nil
	}
	start, stop = clampRange(start, stop, n)
	outs := make([]Content, len(r.contents))
	for i, c := range r.contents {
		sub, err := c.GetItemRange(start, stop)
		if err != nil {
			return nil, err
		}
		outs[i] = sub
	}
	return NewRecordIn(r.bk, outs, r.fields, shape.Of(stop-start), r.params)
}

func (r *Record) GetItemField(name string) (Content, error) {
	i, err := r.fieldIndex(name)
	if err != nil {
		return nil, err
	}
	return trimmed(r.contents[i], r.length)
}

// GetItemFields keeps the requested order for named records and stays a
// tuple when this record is one.
func (r *Record) GetItemFields(names []string) (Content, error) {
	outs := make([]Content, len(names))
	for k, name := range names {
		i, err := r.fieldIndex(name)
		if err != nil {
			return nil, err
		}
		if outs[k], err = trimmed(r.contents[i], r.length); err != nil {
			return nil, err
		}
	}
	var outFields []string
	if r.fields != nil {
		outFields = slices.Clone(names)
	}
	return NewRecordIn(r.bk, outs, outFields, r.length, nil)
}

func (r *Record) Carry(idx *index.Index, lazy bool) (Content, error) {
	idx2, err := regularizeCarry(idx, r.length, "RecordArray")
	if err != nil {
		return nil, err
	}
	if lazy {
		return NewIndexed(idx2, r, nil)
	}
	outs := make([]Content, len(r.contents))
	for i, c := range r.contents {
		if outs[i], err = c.Carry(idx2, false); err != nil {
			return nil, err
		}
	}
	return NewRecordIn(r.bk, outs, r.fields, idx2.Len(), r.params)
}

func sameFieldSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as, bs := slices.Clone(a), slices.Clone(b)
	slices.Sort(as)
	slices.Sort(bs)
	return slices.Equal(as, bs)
}

func (r *Record) Mergeable(other Content, mergebool bool) bool {
	if handled, ok := mergeableGeneric(r, other, mergebool); handled {
		return ok
	}
	o, isRec := other.(*Record)
	if !isRec {
		return false
	}
	if (r.fields == nil) != (o.fields == nil) || len(r.contents) != len(o.contents) {
		return false
	}
	if r.fields == nil {
		for i := range r.contents {
			if !r.contents[i].Mergeable(o.contents[i], mergebool) {
				return false
			}
		}
		return true
	}
	if !sameFieldSet(r.fields, o.fields) {
		return false
	}
	for i, name := range r.fields {
		j, err := o.fieldIndex(name)
		if err != nil {
			return false
		}
		if !r.contents[i].Mergeable(o.contents[j], mergebool) {
			return false
		}
	}
	return true
}

func (r *Record) mergeMany(others []Content) (Content, error) {
	if len(others) == 0 {
		return r, nil
	}
	head, tail, err := mergingStrategy(r, others)
	if err != nil {
		return nil, err
	}
	params := r.params
	perField := make([][]Content, len(r.contents))
	for i := range r.contents {
		f, err := trimmed(r.contents[i], r.length)
		if err != nil {
			return nil, err
		}
		perField[i] = append(perField[i], f)
	}
	total := r.length
	for _, c := range head[1:] {
		total = total.Add(c.Length())
		switch x := c.(type) {
		case *Empty:
		case *Record:
			if (r.fields == nil) != (x.fields == nil) {
				if r.fields == nil {
					return nil, fmt.Errorf("%w: cannot merge a tuple with a record", ErrMergeIncompatibility)
				}
				return nil, fmt.Errorf("%w: cannot merge a record with a tuple", ErrMergeIncompatibility)
			}
			if r.fields == nil {
				if len(x.contents) != len(r.contents) {
					return nil, fmt.Errorf("%w: cannot merge tuples with %d and %d fields",
						ErrMergeIncompatibility, len(r.contents), len(x.contents))
				}
				for i := range r.contents {
					f, err := trimmed(x.contents[i], x.length)
					if err != nil {
						return nil, err
					}
					perField[i] = append(perField[i], f)
				}
			} else {
				if !sameFieldSet(r.fields, x.fields) {
					return nil, fmt.Errorf("%w: cannot merge records with field sets %v and %v",
						ErrMergeIncompatibility, r.fields, x.fields)
				}
				for i, name := range r.fields {
					f, err := x.GetItemField(name)
					if err != nil {
						return nil, err
					}
					perField[i] = append(perField[i], f)
				}
			}
			params = paramsIntersect(params, x.params)
		default:
			return nil, fmt.Errorf("%w: cannot merge RecordArray with %s", ErrMergeIncompatibility, ClassOf(c))
		}
	}
	outs := make([]Content, len(r.contents))
	for i := range perField {
		merged, err := perField[i][0].mergeMany(perField[i][1:])
		if err != nil {
			return nil, err
		}
		outs[i] = merged
	}
	next, err := NewRecordIn(r.bk, outs, r.fields, total, params)
	if err != nil {
		return nil, err
	}
	return mergeTail(next, tail)
}

func (r *Record) getItemNext(head SliceItem, tail []SliceItem, advanced *index.Index) (Content, error) {
	switch h := head.(type) {
	case nil:
		return r, nil
	case SliceField:
		return nextField(r, string(h), tail, advanced)
	case SliceFields:
		return nextFields(r, []string(h), tail, advanced)
	case SliceNewAxis:
		return nextNewAxis(r, tail, advanced)
	case SliceEllipsis:
		return nextEllipsis(r, tail, advanced)
	default:
		if len(r.contents) == 0 {
			return nil, fmt.Errorf("%w: cannot slice a RecordArray with no fields by position", ErrUnsupported)
		}
		var params Parameters
		switch head.(type) {
		case SliceRange, SliceContent:
			params = r.params
		default:
			if advanced == nil {
				params = r.params
			}
		}
		outs := make([]Content, len(r.contents))
		for i := range r.contents {
			f, err := trimmed(r.contents[i], r.length)
			if err != nil {
				return nil, err
			}
			if outs[i], err = f.getItemNext(head, nil, advanced); err != nil {
				return nil, err
			}
		}
		next, err := NewRecordIn(r.bk, outs, r.fields, shape.Unknown(), params)
		if err != nil {
			return nil, err
		}
		head2, rest := headTail(tail)
		return next.getItemNext(head2, rest, advanced)
	}
}

func (r *Record) getItemNextJagged(slicestarts, slicestops *index.Index, slicecontent Content, tail []SliceItem) (Content, error) {
	outs := make([]Content, len(r.contents))
	for i := range r.contents {
		f, err := trimmed(r.contents[i], r.length)
		if err != nil {
			return nil, err
		}
		if outs[i], err = f.getItemNextJagged(slicestarts, slicestops, slicecontent, tail); err != nil {
			return nil, err
		}
	}
	return NewRecordIn(r.bk, outs, r.fields, r.length, r.params)
}

func (r *Record) localIndex(axis, depth int) (Content, error) {
	if axis == depth-1 {
		return localIndexAxis0(r)
	}
	outs := make([]Content, len(r.contents))
	for i, c := range r.contents {
		out, err := c.localIndex(axis, depth)
		if err != nil {
			return nil, err
		}
		outs[i] = out
	}
	return NewRecordIn(r.bk, outs, r.fields, r.length, r.params)
}

func (r *Record) combinations(n int64, replacement bool, fields []string, params Parameters, axis, depth int) (Content, error) {
	if axis == depth-1 {
		return combinationsAxis0(r, n, replacement, fields, params)
	}
	outs := make([]Content, len(r.contents))
	for i, c := range r.contents {
		out, err := c.combinations(n, replacement, fields, params, axis, depth)
		if err != nil {
			return nil, err
		}
		outs[i] = out
	}
	return NewRecordIn(r.bk, outs, r.fields, r.length, r.params)
}

func (r *Record) padNone(target int64, axis, depth int, clip bool) (Content, error) {
	if axis == depth-1 {
		return padAxis0(r, target, clip)
	}
	outs := make([]Content, len(r.contents))
	for i, c := range r.contents {
		out, err := c.padNone(target, axis, depth, clip)
		if err != nil {
			return nil, err
		}
		outs[i] = out
	}
	return NewRecordIn(r.bk, outs, r.fields, r.length, r.params)
}

func (r *Record) offsetsAndFlattened(axis, depth int) (*index.Index, Content, error) {
	switch {
	case axis == depth-1:
		return nil, nil, fmt.Errorf("%w: axis=0 not allowed for flatten", ErrStructuralType)
	case axis == depth:
		return nil, nil, fmt.Errorf("%w: arrays of records cannot be flattened, though their fields can be", ErrUnsupported)
	}
	outs := make([]Content, len(r.contents))
	for i := range r.contents {
		f, err := trimmed(r.contents[i], r.length)
		if err != nil {
			return nil, nil, err
		}
		inner, flat, err := f.offsetsAndFlattened(axis, depth)
		if err != nil {
			return nil, nil, err
		}
		if inner != nil {
			return nil, nil, fmt.Errorf("%w: record field %q flattens to offsets", ErrStructuralType, fieldNameOf(r.fields, i))
		}
		outs[i] = flat
	}
	rec, err := NewRecordIn(r.bk, outs, r.fields, r.length, r.params)
	if err != nil {
		return nil, nil, err
	}
	return nil, rec, nil
}

func (r *Record) removeStructure() ([]Content, error) {
	var out []Content
	for i := range r.contents {
		f, err := trimmed(r.contents[i], r.length)
		if err != nil {
			return nil, err
		}
		flat, err := f.removeStructure()
		if err != nil {
			return nil, err
		}
		out = append(out, flat...)
	}
	return out, nil
}

func (r *Record) sortNext(axis, depth int, ascending, stable bool) (Content, error) {
	if len(r.contents) == 0 {
		return nil, fmt.Errorf("%w: cannot sort a record with no fields", ErrUnsupported)
	}
	outs := make([]Content, len(r.contents))
	for i := range r.contents {
		f, err := trimmed(r.contents[i], r.length)
		if err != nil {
			return nil, err
		}
		if outs[i], err = f.sortNext(axis, depth, ascending, stable); err != nil {
			return nil, err
		}
	}
	return NewRecordIn(r.bk, outs, r.fields, r.length, r.params)
}

func (r *Record) argsortNext(axis, depth int, ascending, stable bool) (Content, error) {
	return nil, fmt.Errorf("%w: cannot argsort records", ErrUnsupported)
}

func (r *Record) reduceNext(op backend.ReduceOp, axis, depth int) (Content, error) {
	return nil, fmt.Errorf("%w: cannot reduce records", ErrUnsupported)
}

func (r *Record) ToPacked() (Content, error) {
	outs := make([]Content, len(r.contents))
	for i := range r.contents {
		f, err := trimmed(r.contents[i], r.length)
		if err != nil {
			return nil, err
		}
		if outs[i], err = f.ToPacked(); err != nil {
			return nil, err
		}
	}
	return NewRecordIn(r.bk, outs, r.fields, r.length, r.params)
}

func (r *Record) ToList() (any, error) { return toListGeneric(r) }

func (r *Record) Validity() error { return validityWalk(r, "layout") }

func (r *Record) TouchData(recursive bool) {
	if recursive {
		for _, c := range r.contents {
			c.TouchData(true)
		}
	}
}

func (r *Record) TouchShape(recursive bool) {
	if recursive {
		for _, c := range r.contents {
			c.TouchShape(true)
		}
	}
}

// RecordRow is a positional view of one record; it copies nothing.
type RecordRow struct {
	arr *Record
	at  int64
}

func (r *RecordRow) Array() *Record   { return r.arr }
func (r *RecordRow) At() int64        { return r.at }
func (r *RecordRow) IsTuple() bool    { return r.arr.IsTuple() }
func (r *RecordRow) Fields() []string { return r.arr.Fields() }

// Field reads one cell of the row.
func (r *RecordRow) Field(name string) (any, error) {
	i, err := r.arr.fieldIndex(name)
	if err != nil {
		return nil, err
	}
	return r.arr.contents[i].GetItemAt(r.at)
}

// ToList materializes the row as a map, or a position-ordered slice for
// tuples.
func (r *RecordRow) ToList() (any, error) {
	cell := func(i int) (any, error) {
		v, err := r.arr.contents[i].GetItemAt(r.at)
		if err != nil {
			return nil, err
		}
		return cellToList(v)
	}
	if r.arr.IsTuple() {
		out := make([]any, len(r.arr.contents))
		for i := range r.arr.contents {
			v, err := cell(i)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	out := make(map[string]any, len(r.arr.contents))
	for i, name := range r.arr.fields {
		v, err := cell(i)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}
