package render

import (
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

//Encoding is one channel of a Vega-Lite encoding block
type Encoding struct {
	Channel   string
	Field     string
	Type      string
	Aggregate string
}

//Chart is the part of a Vega-Lite spec that can be summarized without drawing it
type Chart struct {
	Title     string
	Mark      string
	Encodings []Encoding
	Points    int
	Spec      string
}

//ParseChart parses a serialized Vega-Lite spec. The spec must be a JSON object.
func ParseChart(payload string) (*Chart, error) {
	if !gjson.Valid(payload) {
		return nil, errors.New("chart spec is not valid JSON")
	}
	spec := gjson.Parse(payload)
	if !spec.IsObject() {
		return nil, errors.Errorf("chart spec is a %s, not an object", spec.Type)
	}

	c := &Chart{Spec: payload}

	//title and mark may be a string or an object
	if t := spec.Get("title"); t.IsObject() {
		c.Title = t.Get("text").String()
	} else {
		c.Title = t.String()
	}
	if m := spec.Get("mark"); m.IsObject() {
		c.Mark = m.Get("type").String()
	} else {
		c.Mark = m.String()
	}

	spec.Get("encoding").ForEach(func(key, value gjson.Result) bool {
		c.Encodings = append(c.Encodings, Encoding{
			Channel:   key.String(),
			Field:     value.Get("field").String(),
			Type:      value.Get("type").String(),
			Aggregate: value.Get("aggregate").String(),
		})
		return true
	})

	c.Points = int(spec.Get("data.values.#").Int())

	return c, nil
}
