package flake

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
)

// Parse decodes a flake.lock document. Failures are reported as a
// *DocumentError wrapping ErrMalformedDocument, ErrUnknownReferenceType or
// ErrMissingRoot; no partial document is returned.
func Parse(data []byte) (*Lock, error) {
	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, classify("", "", err)
	}
	if lock.Nodes == nil {
		return nil, malformed("", "nodes", "required field is missing", nil)
	}
	return &lock, nil
}

func Decode(r io.Reader) (*Lock, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading flake.lock: %w", err)
	}
	return Parse(data)
}

// Load reads and parses the lock file at path.
func Load(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading flake.lock: %w", err)
	}

	lock, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", path, err)
	}
	return lock, nil
}

func (l *Lock) UnmarshalJSON(data []byte) error {
	var raw struct {
		Nodes   map[string]json.RawMessage `json:"nodes"`
		Root    *string                    `json:"root"`
		Version *int                       `json:"version"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return classify("", "", err)
	}

	switch {
	case raw.Nodes == nil:
		return malformed("", "nodes", "required field is missing", nil)
	case raw.Root == nil:
		return malformed("", "root", "required field is missing", nil)
	case raw.Version == nil:
		return malformed("", "version", "required field is missing", nil)
	}

	if _, ok := raw.Nodes[*raw.Root]; !ok {
		return &DocumentError{
			Kind:  ErrMissingRoot,
			Field: "root",
			Msg:   fmt.Sprintf("%q is not a key of nodes", *raw.Root),
		}
	}

	// Sorted so the first reported error does not depend on map order
	nodes := make(map[string]Node, len(raw.Nodes))
	for _, name := range slices.Sorted(maps.Keys(raw.Nodes)) {
		node, err := decodeNode(name, raw.Nodes[name])
		if err != nil {
			return err
		}
		nodes[name] = node
	}

	*l = Lock{Nodes: nodes, Root: *raw.Root, Version: *raw.Version}
	return nil
}

func decodeNode(name string, data json.RawMessage) (Node, error) {
	if isNull(data) {
		return Node{}, malformed(name, "", "node must be an object", nil)
	}

	var raw struct {
		Locked   json.RawMessage            `json:"locked"`
		Original json.RawMessage            `json:"original"`
		Inputs   map[string]json.RawMessage `json:"inputs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Node{}, classify(name, "", err)
	}

	var node Node
	if !isNull(raw.Locked) {
		locked, err := decodeLocked(name, raw.Locked)
		if err != nil {
			return Node{}, err
		}
		node.Locked = locked
	}

	if !isNull(raw.Original) {
		ref, err := decodeReference(name, "original", raw.Original)
		if err != nil {
			return Node{}, err
		}
		node.Original = ref
	}

	if len(raw.Inputs) > 0 {
		node.Inputs = make(map[string]Input, len(raw.Inputs))
		for _, inputName := range slices.Sorted(maps.Keys(raw.Inputs)) {
			input, err := decodeInput(name, inputName, raw.Inputs[inputName])
			if err != nil {
				return Node{}, err
			}
			node.Inputs[inputName] = input
		}
	}

	return node, nil
}

func decodeLocked(node string, data json.RawMessage) (*Locked, error) {
	ref, err := decodeReference(node, "locked", data)
	if err != nil {
		return nil, err
	}

	var stamp struct {
		LastModified *int64  `json:"lastModified"`
		NarHash      *string `json:"narHash"`
	}
	if err := json.Unmarshal(data, &stamp); err != nil {
		return nil, classify(node, "locked", err)
	}
	if stamp.LastModified == nil {
		return nil, malformed(node, "locked.lastModified", "required field is missing", nil)
	}
	if stamp.NarHash == nil {
		return nil, malformed(node, "locked.narHash", "required field is missing", nil)
	}

	return &Locked{LastModified: *stamp.LastModified, NarHash: *stamp.NarHash, Ref: ref}, nil
}

func decodeReference(node, field string, data json.RawMessage) (Reference, error) {
	var tagged struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, classify(node, field, err)
	}
	if tagged.Type == nil {
		return nil, &DocumentError{Kind: ErrUnknownReferenceType, Node: node, Field: field + ".type", Msg: "missing type tag"}
	}

	switch *tagged.Type {
	case "github", "gitlab", "sourcehut":
		var forge Forge
		if err := decodeVariant(node, field, data, &forge); err != nil {
			return nil, err
		}
		if err := required(node, field, "owner", forge.Owner, "repo", forge.Repo); err != nil {
			return nil, err
		}
		switch *tagged.Type {
		case "github":
			return GitHub{forge}, nil
		case "gitlab":
			return GitLab{forge}, nil
		default:
			return SourceHut{forge}, nil
		}

	case "git":
		var ref Git
		if err := decodeVariant(node, field, data, &ref); err != nil {
			return nil, err
		}
		return ref, required(node, field, "url", ref.URL)

	case "tarball":
		var ref Tarball
		if err := decodeVariant(node, field, data, &ref); err != nil {
			return nil, err
		}
		return ref, required(node, field, "url", ref.URL)

	case "path":
		var ref Path
		if err := decodeVariant(node, field, data, &ref); err != nil {
			return nil, err
		}
		return ref, required(node, field, "path", ref.Path)

	case "indirect":
		var ref Indirect
		if err := decodeVariant(node, field, data, &ref); err != nil {
			return nil, err
		}
		return ref, required(node, field, "id", ref.ID)

	default:
		return nil, &DocumentError{
			Kind:  ErrUnknownReferenceType,
			Node:  node,
			Field: field + ".type",
			Msg:   fmt.Sprintf("%q is not one of github, gitlab, sourcehut, git, tarball, path, indirect", *tagged.Type),
		}
	}
}

func decodeVariant[T any](node, field string, data json.RawMessage, v *T) error {
	if err := json.Unmarshal(data, v); err != nil {
		return classify(node, field, err)
	}
	return nil
}

// required takes name/value pairs and fails on the first empty value.
func required(node, field string, pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return malformed(node, field+"."+pairs[i], "required field is missing", nil)
		}
	}
	return nil
}

// A bare string is a direct node reference; any array, even with a single
// element, is a follows path.
func decodeInput(node, name string, data json.RawMessage) (Input, error) {
	field := "inputs." + name
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Input{}, malformed(node, field, "empty value", nil)
	}

	switch trimmed[0] {
	case '"':
		var target string
		if err := json.Unmarshal(trimmed, &target); err != nil {
			return Input{}, classify(node, field, err)
		}
		return Direct(target), nil
	case '[':
		var steps []string
		if err := json.Unmarshal(trimmed, &steps); err != nil {
			return Input{}, classify(node, field, err)
		}
		return Follows(steps...), nil
	default:
		return Input{}, malformed(node, field, "expected a node name or a list of input names", nil)
	}
}

func isNull(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func classify(node, field string, err error) error {
	var docErr *DocumentError
	if errors.As(err, &docErr) {
		return docErr
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return malformed(node, field, fmt.Sprintf("invalid JSON at offset %d", syntaxErr.Offset), err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field != "" {
			if field != "" {
				field += "." + typeErr.Field
			} else {
				field = typeErr.Field
			}
		}
		return malformed(node, field, fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value), err)
	}

	return malformed(node, field, err.Error(), err)
}
