package flake

// Lock is a parsed flake.lock document. A Lock returned by Parse always has
// Root present as a key of Nodes.
type Lock struct {
	Nodes   map[string]Node
	Root    string
	Version int
}

type Node struct {
	Locked   *Locked
	Original Reference // nil when the lock entry has no "original" field
	Inputs   map[string]Input
}

// Locked is the pinned form of a reference as written after fetching.
type Locked struct {
	LastModified int64
	NarHash      string
	Ref          Reference
}

// Reference is one of GitHub, GitLab, SourceHut, Git, Tarball, Path or
// Indirect. The set is closed: other "type" tags are rejected while parsing.
type Reference interface {
	Type() string
	isReference()
}

// Forge is the payload shared by the hosted forge references.
type Forge struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Ref   string `json:"ref,omitempty"`
	Rev   string `json:"rev,omitempty"`
	Host  string `json:"host,omitempty"`
}

type GitHub struct{ Forge }

type GitLab struct{ Forge }

type SourceHut struct{ Forge }

type Git struct {
	URL string `json:"url"`
	Ref string `json:"ref,omitempty"`
	Rev string `json:"rev,omitempty"`
}

type Tarball struct {
	URL string `json:"url"`
}

type Path struct {
	Path string `json:"path"`
}

// Indirect is a flake registry lookup such as "nixpkgs".
type Indirect struct {
	ID  string `json:"id"`
	Ref string `json:"ref,omitempty"`
	Rev string `json:"rev,omitempty"`
}

func (GitHub) Type() string    { return "github" }
func (GitLab) Type() string    { return "gitlab" }
func (SourceHut) Type() string { return "sourcehut" }
func (Git) Type() string       { return "git" }
func (Tarball) Type() string   { return "tarball" }
func (Path) Type() string      { return "path" }
func (Indirect) Type() string  { return "indirect" }

func (GitHub) isReference()    {}
func (GitLab) isReference()    {}
func (SourceHut) isReference() {}
func (Git) isReference()       {}
func (Tarball) isReference()   {}
func (Path) isReference()      {}
func (Indirect) isReference()  {}

type InputKind int

const (
	// InputDirect names another node of the lock directly.
	InputDirect InputKind = iota
	// InputFollows is a path of input names walked from the root node.
	InputFollows
)

func (k InputKind) String() string {
	switch k {
	case InputDirect:
		return "direct"
	case InputFollows:
		return "follows"
	default:
		return "unknown"
	}
}

// Input is a reference from one node to another. Node is set for direct
// inputs, Steps for follows inputs.
type Input struct {
	Kind  InputKind
	Node  string
	Steps []string
}

func Direct(node string) Input {
	return Input{Kind: InputDirect, Node: node}
}

func Follows(steps ...string) Input {
	if steps == nil {
		steps = []string{}
	}
	return Input{Kind: InputFollows, Steps: steps}
}
