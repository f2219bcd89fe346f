package pdf

import (
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// objectReader resolves pdfcpu objects against one document context
type objectReader struct {
	ctx *model.Context
}

func (o objectReader) resolve(obj types.Object) types.Object {
	if obj == nil || o.ctx == nil {
		return obj
	}
	res, err := o.ctx.Dereference(obj)
	if err != nil {
		return nil
	}
	return res
}

func (o objectReader) dict(obj types.Object) (types.Dict, bool) {
	switch v := o.resolve(obj).(type) {
	case types.Dict:
		return v, true
	case types.StreamDict:
		return v.Dict, true
	default:
		return nil, false
	}
}

func (o objectReader) array(obj types.Object) (types.Array, bool) {
	a, ok := o.resolve(obj).(types.Array)
	return a, ok
}

func (o objectReader) number(obj types.Object) (float64, bool) {
	switch v := o.resolve(obj).(type) {
	case types.Integer:
		return float64(v), true
	case types.Float:
		return float64(v), true
	default:
		return 0, false
	}
}

func (o objectReader) name(obj types.Object) (string, bool) {
	n, ok := o.resolve(obj).(types.Name)
	return string(n), ok
}

// text decodes a PDF text string (literal, hex or name)
func (o objectReader) text(obj types.Object) (string, bool) {
	switch v := o.resolve(obj).(type) {
	case types.StringLiteral:
		s, err := types.StringLiteralToString(v)
		return s, err == nil
	case types.HexLiteral:
		s, err := types.HexLiteralToString(v)
		return s, err == nil
	case types.Name:
		return string(v), true
	default:
		return "", false
	}
}

// rect reads a [x0 y0 x1 y1] array
func (o objectReader) rect(obj types.Object) (x0, y0, x1, y1 float64, ok bool) {
	a, found := o.array(obj)
	if !found || len(a) < 4 {
		return 0, 0, 0, 0, false
	}
	var v [4]float64
	for i := range v {
		if v[i], ok = o.number(a[i]); !ok {
			return 0, 0, 0, 0, false
		}
	}
	return v[0], v[1], v[2], v[3], true
}
