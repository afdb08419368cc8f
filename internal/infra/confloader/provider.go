package confloader

import (
	"errors"
	"strings"
)

var errReadBytes = errors.New("confloader: map provider supports Read only")

// mapProvider feeds a map to koanf. Dotted keys are expanded so
// {"gateway.addr": x} and {"gateway": {"addr": x}} load the same way.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errReadBytes
}

func (m mapProvider) Read() (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		insert(out, strings.Split(k, "."), v)
	}
	return out, nil
}

func insert(dst map[string]any, path []string, v any) {
	if len(path) == 1 {
		dst[path[0]] = v
		return
	}
	child, ok := dst[path[0]].(map[string]any)
	if !ok {
		child = map[string]any{}
		dst[path[0]] = child
	}
	insert(child, path[1:], v)
}
