package flake

import (
	"fmt"
)

var defaultHosts = map[string]string{
	"github":    "github.com",
	"gitlab":    "gitlab.com",
	"sourcehut": "git.sr.ht",
}

// ShortURL renders a reference in flake URL form, e.g. "github:NixOS/nixpkgs".
// It returns an empty string for a nil reference.
func ShortURL(ref Reference) string {
	switch r := ref.(type) {
	case GitHub:
		return forgeURL(r.Type(), r.Forge)
	case GitLab:
		return forgeURL(r.Type(), r.Forge)
	case SourceHut:
		return forgeURL(r.Type(), r.Forge)
	case Git:
		return fmt.Sprintf("%s:%s", r.Type(), r.URL)
	case Tarball:
		return fmt.Sprintf("%s:%s", r.Type(), r.URL)
	case Path:
		return fmt.Sprintf("%s:%s", r.Type(), r.Path)
	case Indirect:
		return fmt.Sprintf("flake:%s", r.ID)
	default:
		return ""
	}
}

func forgeURL(kind string, f Forge) string {
	url := fmt.Sprintf("%s:%s/%s", kind, f.Owner, f.Repo)
	if f.Host != "" && f.Host != defaultHosts[kind] {
		url += fmt.Sprintf("?host=%s", f.Host)
	}
	return url
}

// WebURL returns a browsable URL for forge references, pointing at the
// pinned revision when there is one. Other reference kinds have no web URL.
func WebURL(ref Reference) string {
	var (
		kind  string
		forge Forge
		tree  = "tree"
	)

	switch r := ref.(type) {
	case GitHub:
		kind, forge = r.Type(), r.Forge
	case GitLab:
		kind, forge = r.Type(), r.Forge
		tree = "-/tree"
	case SourceHut:
		kind, forge = r.Type(), r.Forge
	default:
		return ""
	}

	host := forge.Host
	if host == "" {
		host = defaultHosts[kind]
	}

	if forge.Rev != "" {
		return fmt.Sprintf("https://%s/%s/%s/%s/%s", host, forge.Owner, forge.Repo, tree, forge.Rev)
	}
	return fmt.Sprintf("https://%s/%s/%s", host, forge.Owner, forge.Repo)
}

// Revision returns the pinned revision of ref, if its kind carries one.
func Revision(ref Reference) string {
	switch r := ref.(type) {
	case GitHub:
		return r.Rev
	case GitLab:
		return r.Rev
	case SourceHut:
		return r.Rev
	case Git:
		return r.Rev
	case Indirect:
		return r.Rev
	default:
		return ""
	}
}
