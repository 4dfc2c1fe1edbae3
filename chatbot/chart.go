package chatbot

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/korylprince/knowledge-chatbot/api"
	"github.com/tidwall/sjson"
)

const vegaLiteSchema = "https://vega.github.io/schema/vega-lite/v5.json"

var marks = map[string]string{
	"bar":     "bar",
	"line":    "line",
	"area":    "area",
	"point":   "point",
	"scatter": "point",
	"arc":     "arc",
	"pie":     "arc",
}

var dateRegexp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// fieldType infers the Vega-Lite type of a column from its values
func fieldType(t *api.Table, col int) string {
	typ := ""
	for _, row := range t.Rows {
		var cur string
		switch v := row[col].(type) {
		case nil:
			continue
		case int64, float64:
			cur = "quantitative"
		case string:
			if dateRegexp.MatchString(v) {
				cur = "temporal"
			} else {
				cur = "nominal"
			}
		default:
			cur = "nominal"
		}
		if typ != "" && typ != cur {
			return "nominal"
		}
		typ = cur
	}
	if typ == "" {
		return "nominal"
	}
	return typ
}

func columnIndex(t *api.Table, name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// BuildChart returns a Vega-Lite spec plotting the table with its rows inlined as data
func BuildChart(title string, t *api.Table, mark, x, y, color string) (string, error) {
	m, ok := marks[mark]
	if !ok {
		return "", fmt.Errorf("unsupported mark: %s", mark)
	}
	if len(t.Rows) == 0 {
		return "", fmt.Errorf("query returned no rows to plot")
	}

	channels := [][2]string{{"x", x}, {"y", y}}
	if m == "arc" {
		channels = [][2]string{{"color", x}, {"theta", y}}
	} else if color != "" {
		channels = append(channels, [2]string{"color", color})
	}

	spec := fmt.Sprintf(`{"$schema":%q}`, vegaLiteSchema)
	var err error
	if title != "" {
		if spec, err = sjson.Set(spec, "title", title); err != nil {
			return "", err
		}
	}
	if spec, err = sjson.Set(spec, "mark", m); err != nil {
		return "", err
	}

	for _, ch := range channels {
		idx := columnIndex(t, ch[1])
		if idx < 0 {
			return "", fmt.Errorf("column %s (for %s) not in query result %v", ch[1], ch[0], t.Columns)
		}
		if spec, err = sjson.Set(spec, "encoding."+ch[0]+".field", ch[1]); err != nil {
			return "", err
		}
		if spec, err = sjson.Set(spec, "encoding."+ch[0]+".type", fieldType(t, idx)); err != nil {
			return "", err
		}
	}

	values, err := json.Marshal(t.Records())
	if err != nil {
		return "", fmt.Errorf("failed to marshal chart data: %w", err)
	}
	if spec, err = sjson.SetRaw(spec, "data.values", string(values)); err != nil {
		return "", err
	}

	return spec, nil
}
