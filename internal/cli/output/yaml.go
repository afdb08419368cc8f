package output

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter writes YAML.
type YAMLFormatter struct{}

// Format implements Formatter. Raw JSON bodies are parsed as YAML, which
// keeps the server's field order, and re-emitted in block style.
func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()

	raw, ok := rawJSON(data)
	if !ok {
		return enc.Encode(data)
	}
	if len(raw) == 0 {
		return nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		_, werr := w.Write(append(raw, '\n'))
		return werr
	}
	blockStyle(&doc)
	return enc.Encode(&doc)
}

// blockStyle clears the flow and quoting styles JSON input carries. The
// encoder still quotes strings that would otherwise read as other types.
func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle | yaml.SingleQuotedStyle
	for _, c := range n.Content {
		blockStyle(c)
	}
}
